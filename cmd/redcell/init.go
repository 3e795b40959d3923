package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/redcell-ai/redcell/cmd/redcell/internal"
	"github.com/redcell-ai/redcell/internal/config"
	"github.com/redcell-ai/redcell/internal/scope"
)

var (
	initForce   bool
	initHomeDir string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the redcell home directory",
	Long: `Create the redcell home directory with a default configuration
file, an empty engagement scope, and the run, report, and checkpoint
directories.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing configuration")
	initCmd.Flags().StringVar(&initHomeDir, "home", "", "custom home directory (default ~/.redcell)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	home := initHomeDir
	if home == "" {
		home = os.Getenv("REDCELL_HOME")
	}
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return internal.WrapError(internal.ExitConfigError, "cannot determine home directory", err)
		}
		home = filepath.Join(userHome, ".redcell")
	}

	cmd.Printf("Initializing redcell in %s...\n", home)

	def := config.DefaultConfig()
	def.Core.RunDir = filepath.Join(home, "runs")
	def.Core.ReportDir = filepath.Join(home, "reports")
	def.Core.CheckpointDir = filepath.Join(home, "checkpoints")
	def.Core.ScopeFile = filepath.Join(home, "scope.json")

	for _, dir := range []string{home, def.Core.RunDir, def.Core.ReportDir, def.Core.CheckpointDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return internal.WrapError(internal.ExitConfigError, "failed to create directory", err)
		}
	}

	configPath := filepath.Join(home, "redcell.yaml")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return internal.NewCLIError(internal.ExitConfigError,
			fmt.Sprintf("config already exists at %s (use --force to overwrite)", configPath))
	}

	data, err := yaml.Marshal(def)
	if err != nil {
		return internal.WrapError(internal.ExitConfigError, "failed to serialize config", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return internal.WrapError(internal.ExitConfigError, "failed to write config", err)
	}

	if _, err := os.Stat(def.Core.ScopeFile); os.IsNotExist(err) || initForce {
		empty := scope.Config{Allowed: []string{}, Forbidden: []string{}}
		if err := scope.Save(empty, def.Core.ScopeFile); err != nil {
			return err
		}
	}

	cmd.Printf("Created %s\n", configPath)
	cmd.Printf("Created %s\n", def.Core.ScopeFile)
	cmd.Println("Edit the scope file before running any pipeline.")
	return nil
}
