package config

import "errors"

// Sentinel kinds for configuration errors.
var (
	// ErrInvalidConfig wraps every Validate failure.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig wraps failures reading the PONG_CONFIG file or the environment.
	ErrLoadConfig = errors.New("load config failed")
)
