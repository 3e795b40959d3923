package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcell-ai/redcell/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "redcell.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
core:
  run_dir: /tmp/redcell/runs
  report_dir: /tmp/redcell/reports
  checkpoint_dir: /tmp/redcell/checkpoints
pipeline:
  targets:
    - example.com
    - internal.example.net
  resume: true
  risk_threshold: 7
gates:
  time_window:
    enabled: true
    start_hour: 22
    end_hour: 6
  scope:
    enabled: true
    authorized_domains:
      - example.com
    excluded_patterns:
      - prod
  max_actions: 50
retry:
  enabled: true
  max_attempts: 5
  base_delay: 2s
  max_delay: 1m
logging:
  level: debug
  format: json
`)

	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/redcell/runs", cfg.Core.RunDir)
	assert.Equal(t, []string{"example.com", "internal.example.net"}, cfg.Pipeline.Targets)
	assert.True(t, cfg.Pipeline.Resume)
	assert.Equal(t, 7, cfg.Pipeline.RiskThreshold)
	assert.True(t, cfg.Gates.TimeWindow.Enabled)
	assert.Equal(t, 22, cfg.Gates.TimeWindow.StartHour)
	assert.Equal(t, 6, cfg.Gates.TimeWindow.EndHour)
	assert.Equal(t, []string{"example.com"}, cfg.Gates.Scope.AuthorizedDomains)
	assert.Equal(t, 50, cfg.Gates.MaxActions)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, time.Minute, cfg.Retry.MaxDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoader_MissingKeysFallBackToDefaults(t *testing.T) {
	path := writeConfig(t, `
core:
  run_dir: /tmp/redcell/runs
`)
	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Pipeline.RiskThreshold, cfg.Pipeline.RiskThreshold)
	assert.Equal(t, def.Retry.MaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, def.Logging.Level, cfg.Logging.Level)
}

func TestLoader_MissingFileIsTypedError(t *testing.T) {
	_, err := NewLoader(NewValidator()).Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	var rerr *types.RedcellError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, types.CONFIG_NOT_FOUND, rerr.Code)
}

func TestLoader_MalformedYAMLIsTypedError(t *testing.T) {
	path := writeConfig(t, "core: [unclosed")
	_, err := NewLoader(NewValidator()).Load(path)
	require.Error(t, err)
	var rerr *types.RedcellError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, types.CONFIG_PARSE_FAILED, rerr.Code)
}

func TestLoader_LoadWithDefaultsOnMissingFile(t *testing.T) {
	cfg, err := NewLoader(NewValidator()).LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Pipeline.Targets, cfg.Pipeline.Targets)
}

func TestLoader_EnvInterpolation(t *testing.T) {
	t.Setenv("REDCELL_TEST_RUN_DIR", "/var/lib/redcell/runs")
	path := writeConfig(t, `
core:
  run_dir: ${REDCELL_TEST_RUN_DIR}
`)
	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/redcell/runs", cfg.Core.RunDir)
}

func TestValidator_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "invalid log level",
			mutate: func(c *Config) { c.Logging.Level = "noisy" },
			want:   "Logging.Level",
		},
		{
			name:   "hour out of range",
			mutate: func(c *Config) { c.Gates.TimeWindow.StartHour = 24 },
			want:   "StartHour",
		},
		{
			name:   "zero retry attempts",
			mutate: func(c *Config) { c.Retry.MaxAttempts = 0 },
			want:   "MaxAttempts",
		},
		{
			name: "resume without checkpoint dir",
			mutate: func(c *Config) {
				c.Pipeline.Resume = true
				c.Core.CheckpointDir = ""
			},
			want: "checkpoint_dir",
		},
		{
			name: "scope gate without domains or file",
			mutate: func(c *Config) { c.Gates.Scope.Enabled = true },
			want:   "gates.scope",
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := v.Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidator_AcceptsDefaults(t *testing.T) {
	require.NoError(t, NewValidator().Validate(DefaultConfig()))
}
