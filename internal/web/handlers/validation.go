package handlers

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLevelLength bounds the level value accepted from forms and query strings
const MaxLevelLength = 64

// ValidationError represents a validation error for a request field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateLevel checks a trimmed level value before it is used in a lookup.
// It checks for:
// - Level is not empty
// - Level is not longer than MaxLevelLength characters
// - Level doesn't contain control characters (including null bytes)
func ValidateLevel(level string) error {
	if level == "" {
		return ValidationError{Field: "level", Message: MsgMissingLevel}
	}

	if utf8.RuneCountInString(level) > MaxLevelLength {
		return ValidationError{Field: "level", Message: MsgInvalidLevel}
	}

	if strings.IndexFunc(level, unicode.IsControl) >= 0 {
		return ValidationError{Field: "level", Message: MsgInvalidLevel}
	}

	return nil
}
