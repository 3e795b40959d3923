package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	home := defaultHomeDir()

	return &Config{
		Core: CoreConfig{
			RunDir:        filepath.Join(home, "runs"),
			ReportDir:     filepath.Join(home, "reports"),
			CheckpointDir: filepath.Join(home, "checkpoints"),
			Debug:         false,
		},
		Pipeline: PipelineConfig{
			Targets:        []string{"example.com"},
			Resume:         false,
			RiskThreshold:  5,
			AlertThreshold: 3,
		},
		Gates: GatesConfig{
			TimeWindow: TimeWindowConfig{
				Enabled:   false,
				StartHour: 9,
				EndHour:   17,
			},
			Environment: EnvironmentConfig{
				Enabled:       true,
				CheckHostname: true,
			},
			Approval: ApprovalConfig{
				Enabled: false,
			},
			MaxActions: 0,
		},
		Retry: RetryConfig{
			Enabled:     false,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

func defaultHomeDir() string {
	if dir := os.Getenv("REDCELL_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".redcell"
	}
	return filepath.Join(home, ".redcell")
}
