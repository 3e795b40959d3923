package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redcell-ai/redcell/cmd/redcell/internal"
	"github.com/redcell-ai/redcell/internal/scope"
)

var scopeFile string

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Work with engagement scope files",
}

var scopeCheckCmd = &cobra.Command{
	Use:   "check <host>...",
	Short: "Check hosts against the engagement scope",
	Args:  cobra.MinimumNArgs(1),
	RunE:  checkScope,
}

func init() {
	scopeCheckCmd.Flags().StringVarP(&scopeFile, "scope-file", "s", "", "scope file path (default from config)")
	scopeCmd.AddCommand(scopeCheckCmd)
	rootCmd.AddCommand(scopeCmd)
}

func checkScope(cmd *cobra.Command, args []string) error {
	path := scopeFile
	if path == "" {
		path = cfg.Core.ScopeFile
	}
	if path == "" {
		return internal.NewCLIError(internal.ExitConfigError,
			"no scope file configured; pass --scope-file or set core.scope_file")
	}

	scopeCfg, err := scope.Load(path)
	if err != nil {
		return err
	}
	checker := scope.NewChecker(*scopeCfg)

	out := cmd.OutOrStdout()
	denied := false
	for _, host := range args {
		allowed, reason := checker.IsAllowed(host)
		if allowed {
			fmt.Fprintf(out, "%s %s\n", completedStyle.Render("in scope "), host)
		} else {
			denied = true
			fmt.Fprintf(out, "%s %s %s\n", failedStyle.Render("blocked  "), host,
				mutedStyle.Render("("+reason+")"))
		}
	}

	if denied {
		return internal.NewCLIError(internal.ExitScopeError, "one or more hosts are out of scope")
	}
	return nil
}
