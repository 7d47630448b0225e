package config

import "time"

// TimeoutConfig holds timeout settings for the HTTP server.
type TimeoutConfig struct {
	// Read bounds reading the full request including the body.
	// Default: 15s
	Read time.Duration `yaml:"read"`

	// Write bounds writing the response.
	// Default: 30s
	Write time.Duration `yaml:"write"`

	// Idle is how long keep-alive connections wait for the next request.
	// Default: 120s
	Idle time.Duration `yaml:"idle"`

	// Request is the chi middleware timeout applied to each handler.
	// Default: 60s
	Request time.Duration `yaml:"request"`

	// Shutdown is how long in-flight requests get to finish on SIGINT/SIGTERM.
	// Default: 30s
	Shutdown time.Duration `yaml:"shutdown"`
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Read:     15 * time.Second,
		Write:    30 * time.Second,
		Idle:     120 * time.Second,
		Request:  60 * time.Second,
		Shutdown: 30 * time.Second,
	}
}
