// Package config defines the simulation configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches the log output to JSON.
	LogJSON bool `koanf:"log_json"`

	// Seed is the run seed every generator derives from.
	Seed uint64 `koanf:"seed"`

	// WorkerCount sets the scheduler pool size.
	WorkerCount int `koanf:"worker_count"`

	// ShardCount sets how many tasks each stage is split into. Results depend
	// on it, not on WorkerCount.
	ShardCount int `koanf:"shard_count"`

	// CalibrationIterations is the number of factor updates before the final round.
	CalibrationIterations int `koanf:"calibration_iterations"`

	// StaticErrors keeps one noise vector per person and purpose.
	StaticErrors bool `koanf:"static_errors"`

	// MaxCount caps the trip-count inverse-CDF walk.
	MaxCount int `koanf:"max_count"`

	// LogsumScale is the scale of the reported mean logsum.
	LogsumScale float64 `koanf:"logsum_scale"`

	// ObservedSharesPath points at the observed-share CSV. Empty uses the
	// built-in shares.
	ObservedSharesPath string `koanf:"observed_shares_path"`

	// ModelPath points at the YAML model file. Empty uses the built-in models.
	ModelPath string `koanf:"model_path"`

	// DiagnosticsPath receives the calibration diagnostics CSV when set.
	DiagnosticsPath string `koanf:"diagnostics_path"`

	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// Households, Zones and Regions size the synthetic population.
	Households int `koanf:"households"`
	Zones      int `koanf:"zones"`
	Regions    int `koanf:"regions"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Seed:                  42,
		WorkerCount:           runtime.NumCPU(),
		ShardCount:            16,
		CalibrationIterations: 5,
		MaxCount:              200,
		LogsumScale:           1,
		Households:            2000,
		Zones:                 40,
		Regions:               3,
	}
}
