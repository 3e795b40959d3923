// Package config defines the run configuration file format and its
// loading, defaulting, and validation.
package config

import "time"

// Config is the top-level run configuration, loaded from YAML.
type Config struct {
	Core     CoreConfig     `mapstructure:"core" yaml:"core" validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Gates    GatesConfig    `mapstructure:"gates" yaml:"gates"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// CoreConfig holds filesystem layout and global switches.
type CoreConfig struct {
	RunDir        string `mapstructure:"run_dir" yaml:"run_dir" validate:"required"`
	ReportDir     string `mapstructure:"report_dir" yaml:"report_dir"`
	CheckpointDir string `mapstructure:"checkpoint_dir" yaml:"checkpoint_dir"`
	ScopeFile     string `mapstructure:"scope_file" yaml:"scope_file"`
	Debug         bool   `mapstructure:"debug" yaml:"debug"`
}

// PipelineConfig selects targets and resume behavior.
type PipelineConfig struct {
	Targets        []string `mapstructure:"targets" yaml:"targets"`
	Resume         bool     `mapstructure:"resume" yaml:"resume"`
	RiskThreshold  int      `mapstructure:"risk_threshold" yaml:"risk_threshold" validate:"gte=0"`
	AlertThreshold int      `mapstructure:"alert_threshold" yaml:"alert_threshold" validate:"gte=0"`
}

// GatesConfig configures the safety gates consulted before each stage.
type GatesConfig struct {
	TimeWindow  TimeWindowConfig  `mapstructure:"time_window" yaml:"time_window"`
	Scope       ScopeGateConfig   `mapstructure:"scope" yaml:"scope"`
	Environment EnvironmentConfig `mapstructure:"environment" yaml:"environment"`
	Approval    ApprovalConfig    `mapstructure:"approval" yaml:"approval"`
	MaxActions  int               `mapstructure:"max_actions" yaml:"max_actions" validate:"gte=0"`
}

// TimeWindowConfig bounds execution to an hour range. A window whose
// start is after its end wraps past midnight.
type TimeWindowConfig struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled"`
	StartHour int  `mapstructure:"start_hour" yaml:"start_hour" validate:"gte=0,lte=23"`
	EndHour   int  `mapstructure:"end_hour" yaml:"end_hour" validate:"gte=0,lte=23"`
}

// ScopeGateConfig restricts which targets stages may touch.
type ScopeGateConfig struct {
	Enabled           bool     `mapstructure:"enabled" yaml:"enabled"`
	AuthorizedDomains []string `mapstructure:"authorized_domains" yaml:"authorized_domains"`
	ExcludedPatterns  []string `mapstructure:"excluded_patterns" yaml:"excluded_patterns"`
}

// EnvironmentConfig blocks execution on production-looking hosts.
type EnvironmentConfig struct {
	Enabled            bool     `mapstructure:"enabled" yaml:"enabled"`
	ProhibitedPatterns []string `mapstructure:"prohibited_patterns" yaml:"prohibited_patterns"`
	CheckHostname      bool     `mapstructure:"check_hostname" yaml:"check_hostname"`
}

// ApprovalConfig controls interactive confirmation.
type ApprovalConfig struct {
	Enabled     bool     `mapstructure:"enabled" yaml:"enabled"`
	AutoApprove bool     `mapstructure:"auto_approve" yaml:"auto_approve"`
	RequireFor  []string `mapstructure:"require_for" yaml:"require_for"`
}

// RetryConfig configures the per-stage retry decorator.
type RetryConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}
