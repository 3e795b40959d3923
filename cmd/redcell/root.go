package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redcell-ai/redcell/cmd/redcell/internal"
	"github.com/redcell-ai/redcell/internal/config"
)

var (
	configFile  string
	verboseFlag bool

	// cfg is loaded once before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "redcell",
	Short: "Redcell - Gated Multi-Stage Security Pipeline",
	Long: `Redcell runs ordered reconnaissance pipelines behind safety
gates. Every stage is checked against time windows, scope rules, and
environment restrictions before it executes, and every result is
persisted to an append-only artifact log keyed by run id.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (default $REDCELL_HOME/redcell.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose output")
}

// setup loads configuration and configures logging before any
// subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	internal.SetVerbose(verboseFlag)

	path := configFile
	if path == "" {
		path = os.Getenv("REDCELL_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath()
	}

	loaded, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(path)
	if err != nil {
		return err
	}
	cfg = loaded

	slog.SetDefault(newLogger(cfg.Logging, verboseFlag))
	return nil
}

func defaultConfigPath() string {
	home := os.Getenv("REDCELL_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "redcell.yaml"
		}
		home = userHome + "/.redcell"
	}
	return home + "/redcell.yaml"
}

func newLogger(lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
