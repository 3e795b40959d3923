package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/redcell-ai/redcell/internal/artifact"
	"github.com/redcell-ai/redcell/internal/gate"
	"github.com/redcell-ai/redcell/internal/killswitch"
	"github.com/redcell-ai/redcell/internal/types"
)

// InputStageName is the stage name of the synthetic artifact seeding a
// run from caller-supplied initial input.
const InputStageName = "input"

// Orchestrator drives an ordered stage list through the gate chain,
// chaining artifacts and persisting every step to the run's log.
//
// Execution is strictly sequential. A gate denial skips the stage and
// the pipeline continues; a stage failure is logged as a failed artifact
// and halts the pipeline. The orchestrator owns the run id and one
// artifact logger for the run's lifetime.
type Orchestrator struct {
	stages  []Stage
	gates   *gate.Chain
	runID   types.ID
	logger  *artifact.Logger
	log     *slog.Logger
	tracer  trace.Tracer
	kill    *killswitch.KillSwitch
	emitter Emitter
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGates sets the gates consulted before each stage, in order.
func WithGates(gates ...gate.Gate) Option {
	return func(o *Orchestrator) { o.gates = gate.NewChain(gates...) }
}

// WithGateChain sets a pre-built gate chain (keeps its tracer/logger).
func WithGateChain(chain *gate.Chain) Option {
	return func(o *Orchestrator) { o.gates = chain }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithTracer sets the OpenTelemetry tracer for stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// WithKillSwitch attaches an emergency stop polled between stages.
func WithKillSwitch(k *killswitch.KillSwitch) Option {
	return func(o *Orchestrator) { o.kill = k }
}

// WithEmitter attaches a stage transition event sink.
func WithEmitter(emitter Emitter) Option {
	return func(o *Orchestrator) { o.emitter = emitter }
}

// New creates an orchestrator for the given stages, generating a fresh
// run id and opening the run's artifact log under runDir.
func New(stages []Stage, runDir string, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		stages:  stages,
		gates:   gate.NewChain(),
		log:     slog.Default(),
		emitter: nopEmitter{},
	}
	for _, opt := range opts {
		opt(o)
	}

	logger, err := artifact.Open(runDir, "")
	if err != nil {
		return nil, err
	}
	o.logger = logger
	o.runID = logger.RunID()
	return o, nil
}

// RunID returns the unique run id for this pipeline execution.
func (o *Orchestrator) RunID() types.ID {
	return o.runID
}

// ArtifactPath returns the path of the run's artifact log file.
func (o *Orchestrator) ArtifactPath() string {
	return o.logger.Path()
}

// Run executes the pipeline sequentially through all stages.
//
// Each stage receives the artifact from the last executed stage; gates
// are checked before each stage and a denial skips the stage without
// halting. The final artifact is returned, or nil when every stage was
// skipped and no initial input was given; callers must treat an empty
// run as distinct from a failed one.
func (o *Orchestrator) Run(ctx context.Context, initialInput map[string]any) (*artifact.Artifact, error) {
	defer o.logger.Close()

	var current *artifact.Artifact

	if initialInput != nil {
		current = artifact.New(o.runID, InputStageName, map[string]any{}, initialInput, true, "")
		if err := o.logger.WriteArtifact(current); err != nil {
			return nil, err
		}
	}

	for _, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			return current, err
		}
		if o.kill != nil && o.kill.Engaged() {
			o.log.WarnContext(ctx, "run aborted by kill switch", "run_id", o.runID, "stage", stage.Name())
			o.emit(EventRunAborted, stage.Name(), "kill switch engaged")
			return current, ErrAborted
		}

		next, err := o.runStage(ctx, stage, current)
		if err != nil {
			return nil, err
		}
		if next != nil {
			current = next
		}
	}

	o.log.InfoContext(ctx, "run complete", "run_id", o.runID)
	o.emit(EventRunCompleted, "", "")
	return current, nil
}

// runStage takes one stage through gate-check and execution. It returns
// (nil, nil) for a skipped stage so the caller keeps its current
// artifact.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, current *artifact.Artifact) (*artifact.Artifact, error) {
	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "stage.run",
			trace.WithAttributes(
				attribute.String("run.id", o.runID.String()),
				attribute.String("stage.name", stage.Name()),
			),
		)
		defer span.End()
	}

	decision := o.gates.Check(ctx, stage)
	if !decision.Allowed {
		o.log.InfoContext(ctx, "stage blocked by policy",
			"run_id", o.runID,
			"stage", stage.Name(),
			"reason", decision.Reason,
		)
		if err := o.logger.WriteEvent(artifact.EventGateBlocked, stage.Name()); err != nil {
			return nil, err
		}
		o.emit(EventStageBlocked, stage.Name(), decision.Reason)
		if span != nil {
			span.SetAttributes(attribute.Bool("stage.blocked", true))
		}
		return nil, nil
	}

	o.log.InfoContext(ctx, "executing stage", "run_id", o.runID, "stage", stage.Name())
	o.emit(EventStageRunning, stage.Name(), "")

	result, err := stage.Run(ctx, current)
	if err == nil && result == nil {
		err = types.NewError(types.STAGE_FAILED, "stage returned no artifact")
	}
	if err != nil {
		failed := artifact.FromPrevious(current, stage.Name(), map[string]any{}, false, err.Error())
		failed.RunID = o.runID
		if werr := o.logger.WriteArtifact(failed); werr != nil {
			o.log.ErrorContext(ctx, "failed to log failure artifact", "stage", stage.Name(), "error", werr)
		}
		o.log.ErrorContext(ctx, "stage failed",
			"run_id", o.runID,
			"stage", stage.Name(),
			"error", err,
		)
		o.emit(EventStageFailed, stage.Name(), err.Error())
		return nil, &StageError{Stage: stage.Name(), Err: err}
	}

	// A stage may have built its artifact without the run id (or with a
	// stale one); the orchestrator's id always wins.
	result.RunID = o.runID

	if err := o.logger.WriteArtifact(result); err != nil {
		return nil, err
	}
	o.log.InfoContext(ctx, "stage completed", "run_id", o.runID, "stage", stage.Name())
	o.emit(EventStageCompleted, stage.Name(), "")
	return result, nil
}

func (o *Orchestrator) emit(eventType EventType, stage, reason string) {
	o.emitter.Emit(Event{
		RunID:     o.runID,
		Stage:     stage,
		Type:      eventType,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}
