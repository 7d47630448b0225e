package config

import (
	"os"
	"strconv"
	"time"
)

// SettingsGetter is an interface for retrieving raw setting values by key
type SettingsGetter interface {
	GetSetting(key string) (string, error)
}

// EnvSettings reads settings from process environment variables
type EnvSettings struct{}

// GetSetting returns the value of the environment variable named key
func (EnvSettings) GetSetting(key string) (string, error) {
	return os.Getenv(key), nil
}

// MapSettings serves settings from an in-memory map
type MapSettings map[string]string

// GetSetting returns the value stored under key, or "" when absent
func (m MapSettings) GetSetting(key string) (string, error) {
	return m[key], nil
}

// Loader provides typed access to settings with default values
type Loader struct {
	src SettingsGetter
}

// NewLoader creates a new settings loader
func NewLoader(src SettingsGetter) *Loader {
	return &Loader{src: src}
}

// Int retrieves an integer setting, returning defaultVal if not found or invalid
func (l *Loader) Int(key string, defaultVal int) int {
	if val, _ := l.src.GetSetting(key); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			return v
		}
	}
	return defaultVal
}

// Bool retrieves a boolean setting, returning defaultVal if not found or invalid
func (l *Loader) Bool(key string, defaultVal bool) bool {
	if val, _ := l.src.GetSetting(key); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			return v
		}
	}
	return defaultVal
}

// String retrieves a string setting, returning defaultVal if not found or empty
func (l *Loader) String(key, defaultVal string) string {
	if val, _ := l.src.GetSetting(key); val != "" {
		return val
	}
	return defaultVal
}

// Duration retrieves a duration setting, returning defaultVal if not found or invalid
// Expects the value to be in Go duration format (e.g., "1h30m", "5s")
func (l *Loader) Duration(key string, defaultVal time.Duration) time.Duration {
	if val, _ := l.src.GetSetting(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
