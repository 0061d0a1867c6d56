package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/tripsim/internal/adapters/http/api"
	"github.com/okian/tripsim/internal/config"
	"github.com/okian/tripsim/internal/domain/model"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "model configuration", err: fmt.Errorf("load: %w", model.ErrConfiguration), want: ExitConfig},
		{name: "invalid config", err: config.ErrInvalidConfig, want: ExitConfig},
		{name: "config file", err: errors.Join(config.ErrLoadConfig, os.ErrNotExist), want: ExitConfig},
		{name: "runtime", err: errors.New("boom"), want: ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tripsim version dev")

	out, err = run(t, "version", "--json")
	require.NoError(t, err)
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "dev", v["version"])
}

func TestSimulateCommand(t *testing.T) {
	small := []string{"simulate", "--households", "80", "--zones", "10", "--regions", "2", "--iterations", "2", "--shards", "4", "--log-level", "error"}

	t.Run("summary", func(t *testing.T) {
		out, err := run(t, small...)
		require.NoError(t, err)
		assert.Contains(t, out, "chosen")
		assert.Contains(t, out, "max share gap")
		assert.Contains(t, out, "trips HBW")
	})

	t.Run("json summary and diagnostics", func(t *testing.T) {
		diag := filepath.Join(t.TempDir(), "diag.csv")
		out, err := run(t, append(small, "--json", "--seed", "5", "--diagnostics", diag)...)
		require.NoError(t, err)

		var s api.Summary
		require.NoError(t, json.Unmarshal([]byte(out), &s))
		assert.Equal(t, uint64(5), s.Seed)
		assert.Equal(t, 2, s.Iterations)
		assert.Equal(t, s.Trips, s.Chosen+s.Infeasible+s.Dropped)
		assert.FileExists(t, diag)
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		_, err := run(t, append(small, "--metrics-addr", "127.0.0.1:0")...)
		require.NoError(t, err)
	})

	t.Run("invalid flag value", func(t *testing.T) {
		_, err := run(t, "simulate", "--shards", "0")
		require.Error(t, err)
		assert.Equal(t, ExitConfig, exitCode(err))
	})

	t.Run("missing model file", func(t *testing.T) {
		_, err := run(t, append(small, "--model", filepath.Join(t.TempDir(), "none.yaml"))...)
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("extra arguments", func(t *testing.T) {
		_, err := run(t, "simulate", "now")
		require.Error(t, err)
	})
}
