package pipeline

import (
	"context"

	"github.com/redcell-ai/redcell/internal/artifact"
)

// Stage is one unit of pipeline work. Run receives the previous stage's
// artifact (nil for the first stage) and returns a new artifact chained
// to the same run.
//
// Stage satisfies gate.Descriptor: stages declare their targets
// explicitly so gates never have to guess what a stage touches.
type Stage interface {
	Name() string
	Description() string
	Targets() []string
	Run(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error)
}

// FuncStage adapts a function to the Stage interface. Useful for small
// inline stages and tests.
type FuncStage struct {
	StageName        string
	StageDescription string
	StageTargets     []string
	RunFunc          func(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error)
}

func (s *FuncStage) Name() string        { return s.StageName }
func (s *FuncStage) Description() string { return s.StageDescription }
func (s *FuncStage) Targets() []string   { return s.StageTargets }

func (s *FuncStage) Run(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
	return s.RunFunc(ctx, prev)
}
