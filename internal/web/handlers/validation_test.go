package handlers

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		message string
	}{
		{"numeric", "10", ""},
		{"section", "B2", ""},
		{"sql text is still a value", "10; DROP TABLE timetable", ""},
		{"empty", "", MsgMissingLevel},
		{"null byte", "10\x00", MsgInvalidLevel},
		{"newline", "10\nOR 1=1", MsgInvalidLevel},
		{"too long", strings.Repeat("9", MaxLevelLength+1), MsgInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLevel(tt.level)
			if tt.message == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != "level" || verr.Message != tt.message {
				t.Fatalf("expected level/%q, got %s/%q", tt.message, verr.Field, verr.Message)
			}
		})
	}
}
