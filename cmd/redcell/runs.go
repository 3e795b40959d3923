package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redcell-ai/redcell/cmd/redcell/internal"
	"github.com/redcell-ai/redcell/internal/artifact"
	"github.com/redcell-ai/redcell/internal/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past pipeline runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List run ids with artifact logs",
	RunE:  listRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the artifacts of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := artifact.ListRuns(cfg.Core.RunDir)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmd.Println("no runs recorded")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, runID := range runs {
		artifacts, err := artifact.Load(cfg.Core.RunDir, runID)
		if err != nil {
			return err
		}
		status := completedStyle.Render("ok")
		var last string
		for _, a := range artifacts {
			last = a.Stage
			if !a.Success {
				status = failedStyle.Render("failed")
			}
		}
		fmt.Fprintf(out, "%s  %d artifacts  last=%s  %s\n",
			runID, len(artifacts), last, status)
	}
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	runID, err := types.ParseID(args[0])
	if err != nil {
		return internal.WrapError(internal.ExitError, "invalid run id", err)
	}

	artifacts, err := artifact.Load(cfg.Core.RunDir, runID)
	if err != nil {
		return err
	}
	events, err := artifact.LoadEvents(cfg.Core.RunDir, runID)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 && len(events) == 0 {
		return internal.NewCLIError(internal.ExitError,
			fmt.Sprintf("no artifacts found for run %s", runID))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n\n", runID)

	for _, a := range artifacts {
		status := completedStyle.Render("ok")
		if !a.Success {
			status = failedStyle.Render("failed: " + a.Error)
		}
		keys := make([]string, 0, len(a.Output))
		for k := range a.Output {
			keys = append(keys, k)
		}
		fmt.Fprintf(out, "%-18s %s  %s\n", a.Stage, status,
			mutedStyle.Render(a.Timestamp.Format("2006-01-02 15:04:05")))
		if internal.IsVerbose() && len(keys) > 0 {
			fmt.Fprintf(out, "%-18s output keys: %s\n", "", strings.Join(keys, ", "))
		}
	}

	for _, e := range events {
		fmt.Fprintf(out, "%-18s %s\n", e.Stage, blockedStyle.Render(e.Event))
	}
	return nil
}
