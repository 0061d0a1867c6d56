package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownValue = errors.New("unknown enumeration value")

	// ErrConfiguration is the root of every fatal configuration error. Packages
	// wrap it in their own sentinels so callers can abort with a single check.
	ErrConfiguration = errors.New("configuration error")
)
