package config

import "errors"

// ErrLoadConfig wraps failures reading the config file or environment;
// ErrInvalidConfig marks values Validate rejects. Both are configuration
// errors for the CLI exit code.
var (
	ErrInvalidConfig = errors.New("invalid tripsim config")
	ErrLoadConfig    = errors.New("load tripsim config")
)
