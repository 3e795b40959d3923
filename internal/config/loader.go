package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/redcell-ai/redcell/internal/types"
)

// Loader reads run configuration files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperLoader implements Loader using Viper.
type viperLoader struct {
	validator Validator
}

// NewLoader creates a Loader that validates everything it loads.
func NewLoader(validator Validator) Loader {
	return &viperLoader{validator: validator}
}

// Load reads configuration from path. Missing or unset keys fall back
// to DefaultConfig values; ${VAR} references in string values are
// replaced from the environment before unmarshaling.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.WrapError(types.CONFIG_NOT_FOUND, "config file not found", err)
		}
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to read config file", err)
	}

	for _, key := range v.AllKeys() {
		if s, ok := v.Get(key).(string); ok {
			v.Set(key, interpolateEnv(s))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal config", err)
	}

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults behaves like Load, except a missing file yields the
// default configuration instead of an error.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return l.Load(path)
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("core.run_dir", def.Core.RunDir)
	v.SetDefault("core.report_dir", def.Core.ReportDir)
	v.SetDefault("core.checkpoint_dir", def.Core.CheckpointDir)
	v.SetDefault("pipeline.targets", def.Pipeline.Targets)
	v.SetDefault("pipeline.risk_threshold", def.Pipeline.RiskThreshold)
	v.SetDefault("pipeline.alert_threshold", def.Pipeline.AlertThreshold)
	v.SetDefault("gates.time_window.start_hour", def.Gates.TimeWindow.StartHour)
	v.SetDefault("gates.time_window.end_hour", def.Gates.TimeWindow.EndHour)
	v.SetDefault("gates.environment.enabled", def.Gates.Environment.Enabled)
	v.SetDefault("gates.environment.check_hostname", def.Gates.Environment.CheckHostname)
	v.SetDefault("retry.max_attempts", def.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", def.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", def.Retry.MaxDelay)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateEnv replaces ${VAR_NAME} with environment variable values.
// Unset variables are left as-is so failures surface in validation
// rather than vanish silently.
func interpolateEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}
