package config

import "time"

// TimeoutConfig holds timeout settings for the HTTP API.
// These can be configured via CLI flags.
type TimeoutConfig struct {
	// Request bounds the handling of a single API request. Default: 30s
	Request time.Duration

	// ReadHeader bounds reading request headers. Default: 10s
	ReadHeader time.Duration

	// Shutdown is how long in-flight requests get on shutdown. Default: 10s
	Shutdown time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Request:    30 * time.Second,
		ReadHeader: 10 * time.Second,
		Shutdown:   10 * time.Second,
	}
}

// global instance that can be set at startup
var globalTimeouts = DefaultTimeoutConfig()

// SetGlobalTimeouts sets the global timeout configuration
func SetGlobalTimeouts(cfg *TimeoutConfig) {
	globalTimeouts = cfg
}

// GetTimeouts returns the global timeout configuration
func GetTimeouts() *TimeoutConfig {
	return globalTimeouts
}
