package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcell-ai/redcell/internal/artifact"
	"github.com/redcell-ai/redcell/internal/gate"
	"github.com/redcell-ai/redcell/internal/killswitch"
	"github.com/redcell-ai/redcell/internal/types"
)

func echoStage(name string) *FuncStage {
	return &FuncStage{
		StageName: name,
		RunFunc: func(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
			return artifact.FromPrevious(prev, name, map[string]any{"stage": name}, true, ""), nil
		},
	}
}

func failingStage(name string, err error) *FuncStage {
	return &FuncStage{
		StageName: name,
		RunFunc: func(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
			return nil, err
		},
	}
}

type fixedGate struct {
	decision gate.Decision
}

func (g fixedGate) Name() string { return "fixed" }
func (g fixedGate) Type() gate.Type {
	return gate.TypeScope
}
func (g fixedGate) Allow(ctx context.Context, stage gate.Descriptor) gate.Decision {
	return g.decision
}

func TestOrchestrator_ChainsArtifactsInOrder(t *testing.T) {
	dir := t.TempDir()
	o, err := New([]Stage{echoStage("recon"), echoStage("triage"), echoStage("report")}, dir)
	require.NoError(t, err)

	final, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, "report", final.Stage)
	assert.Equal(t, map[string]any{"stage": "triage"}, final.Input)

	logged, err := artifact.Load(dir, o.RunID())
	require.NoError(t, err)
	require.Len(t, logged, 3)
	for _, a := range logged {
		assert.Equal(t, o.RunID(), a.RunID)
	}
}

func TestOrchestrator_ForcesRunIDOnForgetfulStages(t *testing.T) {
	dir := t.TempDir()
	rogue := &FuncStage{
		StageName: "rogue",
		RunFunc: func(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
			// Builds its artifact with an unrelated run id.
			return artifact.New(types.NewID(), "rogue", nil, map[string]any{"ok": true}, true, ""), nil
		},
	}

	o, err := New([]Stage{rogue}, dir)
	require.NoError(t, err)

	final, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, o.RunID(), final.RunID)

	logged, err := artifact.Load(dir, o.RunID())
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, o.RunID(), logged[0].RunID)
}

func TestOrchestrator_InitialInputSeedsRun(t *testing.T) {
	dir := t.TempDir()
	o, err := New([]Stage{echoStage("recon")}, dir)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), map[string]any{"targets": []any{"example.com"}})
	require.NoError(t, err)

	logged, err := artifact.Load(dir, o.RunID())
	require.NoError(t, err)
	require.Len(t, logged, 2)
	assert.Equal(t, InputStageName, logged[0].Stage)
	assert.Equal(t, map[string]any{"targets": []any{"example.com"}}, logged[0].Output)
	// The first real stage received the seeded input.
	assert.Equal(t, logged[0].Output, logged[1].Input)
}

func TestOrchestrator_GateCompositionLaw(t *testing.T) {
	// One gate always allows, one always denies: the stage is skipped.
	dir := t.TempDir()
	o, err := New(
		[]Stage{echoStage("recon"), echoStage("exploit"), echoStage("report")},
		dir,
		WithGates(
			fixedGate{decision: gate.Allow("ok")},
			&onlyStageGate{blocked: "exploit"},
		),
	)
	require.NoError(t, err)

	final, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, "report", final.Stage)
	// The skipped stage left the current artifact untouched.
	assert.Equal(t, map[string]any{"stage": "recon"}, final.Input)

	logged, err := artifact.Load(dir, o.RunID())
	require.NoError(t, err)
	assert.Len(t, logged, 2)

	events, err := artifact.LoadEvents(dir, o.RunID())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, artifact.EventGateBlocked, events[0].Event)
	assert.Equal(t, "exploit", events[0].Stage)
}

// onlyStageGate denies exactly one stage by name.
type onlyStageGate struct {
	blocked string
}

func (g *onlyStageGate) Name() string    { return "only-stage" }
func (g *onlyStageGate) Type() gate.Type { return gate.TypeScope }
func (g *onlyStageGate) Allow(ctx context.Context, stage gate.Descriptor) gate.Decision {
	if stage.Name() == g.blocked {
		return gate.Deny("stage is blocked")
	}
	return gate.Allow("ok")
}

func TestOrchestrator_AllStagesSkippedReturnsNil(t *testing.T) {
	dir := t.TempDir()
	o, err := New(
		[]Stage{echoStage("recon"), echoStage("triage")},
		dir,
		WithGates(fixedGate{decision: gate.Deny("blanket deny")}),
	)
	require.NoError(t, err)

	final, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, final)

	logged, err := artifact.Load(dir, o.RunID())
	require.NoError(t, err)
	assert.Empty(t, logged)

	events, err := artifact.LoadEvents(dir, o.RunID())
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestOrchestrator_FailureHaltsPipeline(t *testing.T) {
	dir := t.TempDir()
	boom := fmt.Errorf("connection refused")
	third := echoStage("report")
	thirdRan := false
	third.RunFunc = func(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
		thirdRan = true
		return artifact.FromPrevious(prev, "report", nil, true, ""), nil
	}

	o, err := New([]Stage{echoStage("recon"), failingStage("triage", boom), third}, dir)
	require.NoError(t, err)

	final, err := o.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, final)
	assert.False(t, thirdRan)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "triage", stageErr.Stage)
	assert.ErrorIs(t, err, boom)

	logged, err := artifact.Load(dir, o.RunID())
	require.NoError(t, err)
	require.Len(t, logged, 2)

	failed := logged[1]
	assert.Equal(t, "triage", failed.Stage)
	assert.False(t, failed.Success)
	assert.Equal(t, "connection refused", failed.Error)
	// The failed artifact's input is the previous stage's output.
	assert.Equal(t, map[string]any{"stage": "recon"}, failed.Input)
}

func TestOrchestrator_NilArtifactWithoutErrorIsAFailure(t *testing.T) {
	dir := t.TempDir()
	o, err := New([]Stage{&FuncStage{
		StageName: "broken",
		RunFunc: func(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
			return nil, nil
		},
	}}, dir)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), nil)
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "broken", stageErr.Stage)
}

func TestOrchestrator_KillSwitchAbortsBetweenStages(t *testing.T) {
	dir := t.TempDir()
	kill := killswitch.New(nil)

	first := &FuncStage{
		StageName: "recon",
		RunFunc: func(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
			kill.Engage()
			return artifact.FromPrevious(prev, "recon", map[string]any{"ok": true}, true, ""), nil
		},
	}
	secondRan := false
	second := &FuncStage{
		StageName: "triage",
		RunFunc: func(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
			secondRan = true
			return artifact.FromPrevious(prev, "triage", nil, true, ""), nil
		},
	}

	o, err := New([]Stage{first, second}, dir, WithKillSwitch(kill))
	require.NoError(t, err)

	final, err := o.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrAborted)
	assert.False(t, secondRan)
	// The artifact completed before the abort is still returned.
	require.NotNil(t, final)
	assert.Equal(t, "recon", final.Stage)
}

func TestOrchestrator_EmitsTransitionEvents(t *testing.T) {
	dir := t.TempDir()
	var events []Event

	o, err := New(
		[]Stage{echoStage("recon"), echoStage("exploit")},
		dir,
		WithGates(&onlyStageGate{blocked: "exploit"}),
		WithEmitter(EmitterFunc(func(e Event) { events = append(events, e) })),
	)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), nil)
	require.NoError(t, err)

	var kinds []EventType
	for _, e := range events {
		kinds = append(kinds, e.Type)
		assert.Equal(t, o.RunID(), e.RunID)
	}
	assert.Equal(t, []EventType{
		EventStageRunning,
		EventStageCompleted,
		EventStageBlocked,
		EventRunCompleted,
	}, kinds)
}

func TestOrchestrator_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, err := New([]Stage{echoStage("recon")}, dir)
	require.NoError(t, err)

	_, err = o.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
