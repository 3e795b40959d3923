package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/redcell-ai/redcell/cmd/redcell/internal"
	"github.com/redcell-ai/redcell/internal/artifact"
	"github.com/redcell-ai/redcell/internal/config"
	"github.com/redcell-ai/redcell/internal/gate"
	"github.com/redcell-ai/redcell/internal/killswitch"
	"github.com/redcell-ai/redcell/internal/pipeline"
	"github.com/redcell-ai/redcell/internal/resilience"
	"github.com/redcell-ai/redcell/internal/scope"
	"github.com/redcell-ai/redcell/internal/stages"
	"github.com/redcell-ai/redcell/internal/types"
)

var (
	runningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	blockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var (
	runTargets    []string
	runResume     bool
	runResumeID   string
	runKillSwitch bool
	autoApprove   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the reconnaissance pipeline",
	Long: `Run the recon, normalize, triage, and report stages in order.
Each stage passes through the configured safety gates first; a denied
stage is skipped, and a failed stage halts the run.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runTargets, "target", "t", nil, "target domain (repeatable, overrides config)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume from stage checkpoints")
	runCmd.Flags().StringVar(&runResumeID, "run-id", "", "run id to resume checkpoints from")
	runCmd.Flags().BoolVar(&runKillSwitch, "kill-switch", false, "monitor stdin for STOP to abort the run")
	runCmd.Flags().BoolVar(&autoApprove, "yes", false, "approve all gated actions without prompting")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	targets := runTargets
	if len(targets) == 0 {
		targets = cfg.Pipeline.Targets
	}

	chain, err := buildGateChain(cfg)
	if err != nil {
		return err
	}

	stageList, err := buildStages(cfg, targets)
	if err != nil {
		return err
	}

	tracker := resilience.NewAlertTracker(cfg.Pipeline.AlertThreshold,
		resilience.WithAlertCallback(func(a resilience.Alert) {
			fmt.Fprintln(out, failedStyle.Render(
				fmt.Sprintf("ALERT  %s: %d errors (%s)", a.Stage, a.Count, a.Message)))
		}))

	emitter := pipeline.EmitterFunc(func(e pipeline.Event) {
		switch e.Type {
		case pipeline.EventStageRunning:
			fmt.Fprintf(out, "%s %s\n", runningStyle.Render("RUN    "), e.Stage)
		case pipeline.EventStageCompleted:
			fmt.Fprintf(out, "%s %s\n", completedStyle.Render("OK     "), e.Stage)
		case pipeline.EventStageBlocked:
			fmt.Fprintf(out, "%s %s %s\n", blockedStyle.Render("BLOCKED"), e.Stage,
				mutedStyle.Render("("+e.Reason+")"))
		case pipeline.EventStageFailed:
			tracker.RecordError(e.Stage, e.Reason, nil)
			fmt.Fprintf(out, "%s %s %s\n", failedStyle.Render("FAILED "), e.Stage,
				mutedStyle.Render("("+e.Reason+")"))
		case pipeline.EventRunAborted:
			fmt.Fprintln(out, failedStyle.Render("ABORTED"))
		case pipeline.EventRunCompleted:
			fmt.Fprintln(out, completedStyle.Render("run complete"))
		}
	})

	opts := []pipeline.Option{
		pipeline.WithGateChain(chain),
		pipeline.WithEmitter(emitter),
		pipeline.WithTracer(otel.Tracer("redcell/pipeline")),
	}

	if runKillSwitch {
		kill := killswitch.New(cmd.ErrOrStderr())
		if err := kill.Start(os.Stdin); err != nil {
			return err
		}
		opts = append(opts, pipeline.WithKillSwitch(kill))
	}

	orch, err := pipeline.New(stageList, cfg.Core.RunDir, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s\n", mutedStyle.Render(orch.RunID().String()))

	final, err := orch.Run(ctx, map[string]any{"targets": toAny(targets)})
	if err != nil {
		return err
	}
	if final == nil {
		fmt.Fprintln(out, blockedStyle.Render("all stages were blocked; nothing to report"))
		return nil
	}

	if path, ok := final.Output["report_path"].(string); ok {
		fmt.Fprintf(out, "report written to %s\n", path)
	}
	fmt.Fprintf(out, "artifacts: %s\n", orch.ArtifactPath())
	return nil
}

// buildGateChain assembles the gate chain from configuration, in the
// order time window, scope, environment, approval, rate limit.
func buildGateChain(cfg *config.Config) (*gate.Chain, error) {
	var gates []gate.Gate

	if cfg.Gates.TimeWindow.Enabled {
		gates = append(gates, gate.NewTimeWindowGate(
			cfg.Gates.TimeWindow.StartHour,
			cfg.Gates.TimeWindow.EndHour,
		))
	}

	if cfg.Gates.Scope.Enabled {
		scopeGate := gate.NewScopeGate(
			cfg.Gates.Scope.AuthorizedDomains,
			cfg.Gates.Scope.ExcludedPatterns,
		)
		if cfg.Core.ScopeFile != "" {
			scopeCfg, err := scope.Load(cfg.Core.ScopeFile)
			if err != nil {
				return nil, err
			}
			scopeGate = scopeGate.WithChecker(scope.NewChecker(*scopeCfg))
		}
		gates = append(gates, scopeGate)
	}

	if cfg.Gates.Environment.Enabled {
		gates = append(gates, gate.NewEnvironmentGate(cfg.Gates.Environment.ProhibitedPatterns).
			SetCheckHostname(cfg.Gates.Environment.CheckHostname))
	}

	if cfg.Gates.Approval.Enabled {
		approval := gate.NewApprovalGate(cfg.Gates.Approval.RequireFor).
			WithConfirmer(gate.NewStdinPrompter())
		if autoApprove || cfg.Gates.Approval.AutoApprove {
			approval.SetAutoApprove(true)
		}
		gates = append(gates, approval)
	}

	if cfg.Gates.MaxActions > 0 {
		gates = append(gates, gate.NewCountGate(cfg.Gates.MaxActions))
	}

	return gate.NewChain(gates...), nil
}

// buildStages assembles the reference pipeline, applying the retry and
// checkpoint decorators when configured.
func buildStages(cfg *config.Config, targets []string) ([]pipeline.Stage, error) {
	reportOpts := []stages.ReportOption{}
	if cfg.Core.ReportDir != "" {
		reportOpts = append(reportOpts, stages.WithOutputDir(cfg.Core.ReportDir))
	}

	list := []pipeline.Stage{
		stages.NewRecon(targets...),
		stages.NewNormalize(),
		stages.NewTriage(cfg.Pipeline.RiskThreshold),
		stages.NewReport(reportOpts...),
	}

	if cfg.Retry.Enabled {
		retryCfg := resilience.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		}
		for i, stage := range list {
			list[i] = resilience.WithRetry(stage, retryCfg)
		}
	}

	if runResume || cfg.Pipeline.Resume {
		var resumeID types.ID
		if runResumeID != "" {
			parsed, err := types.ParseID(runResumeID)
			if err != nil {
				return nil, internal.WrapError(internal.ExitConfigError, "invalid --run-id", err)
			}
			resumeID = parsed
		}
		store, err := resilience.NewCheckpointStore(cfg.Core.CheckpointDir, resumeID)
		if err != nil {
			return nil, err
		}
		for i, stage := range list {
			list[i] = &checkpointedStage{inner: stage, store: store}
		}
	}

	return list, nil
}

// checkpointedStage skips execution when a checkpoint exists for the
// stage, and checkpoints the result otherwise.
type checkpointedStage struct {
	inner pipeline.Stage
	store *resilience.CheckpointStore
}

func (s *checkpointedStage) Name() string        { return s.inner.Name() }
func (s *checkpointedStage) Description() string { return s.inner.Description() }
func (s *checkpointedStage) Targets() []string   { return s.inner.Targets() }

func (s *checkpointedStage) Run(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
	return resilience.SafeRun(ctx, s.inner, prev, s.store)
}

func toAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
