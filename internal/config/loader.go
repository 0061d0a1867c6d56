package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment key; EnvConfigFile names the YAML file.
const (
	EnvPrefix     = "TRIPSIM_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TRIPSIM_CONFIG is set
//  3. env (prefix TRIPSIM_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// TRIPSIM_WORKER_COUNT -> worker_count. Underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive, got %d", ErrInvalidConfig, c.ShardCount)
	case c.CalibrationIterations < 0:
		return fmt.Errorf("%w: calibration_iterations must not be negative, got %d", ErrInvalidConfig, c.CalibrationIterations)
	case c.MaxCount <= 0:
		return fmt.Errorf("%w: max_count must be positive, got %d", ErrInvalidConfig, c.MaxCount)
	case !(c.LogsumScale > 0):
		return fmt.Errorf("%w: logsum_scale must be positive, got %v", ErrInvalidConfig, c.LogsumScale)
	case c.Households <= 0 || c.Zones <= 0 || c.Regions <= 0:
		return fmt.Errorf("%w: households, zones and regions must be positive", ErrInvalidConfig)
	case c.Regions > c.Zones:
		return fmt.Errorf("%w: %d regions over %d zones", ErrInvalidConfig, c.Regions, c.Zones)
	}
	return nil
}
