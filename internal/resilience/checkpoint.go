package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/redcell-ai/redcell/internal/artifact"
	"github.com/redcell-ai/redcell/internal/pipeline"
	"github.com/redcell-ai/redcell/internal/types"
)

// CheckpointStore persists one artifact per stage under a per-run
// directory, so an interrupted run can resume without re-executing
// completed stages. Files live at <dir>/<runID>/<stage>.json and use
// the same JSON shape as one artifact log record.
//
// One writer per run id is assumed. Two processes checkpointing the
// same run id will clobber each other's files.
type CheckpointStore struct {
	dir   string
	runID types.ID
}

// NewCheckpointStore creates a store rooted at dir for the given run.
func NewCheckpointStore(dir string, runID types.ID) (*CheckpointStore, error) {
	if runID.IsZero() {
		runID = types.NewID()
	}
	runDir := filepath.Join(dir, runID.String())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, types.WrapError(types.CHECKPOINT_SAVE_FAILED,
			fmt.Sprintf("failed to create checkpoint directory %s", runDir), err)
	}
	return &CheckpointStore{dir: dir, runID: runID}, nil
}

// RunID returns the run this store belongs to.
func (s *CheckpointStore) RunID() types.ID {
	return s.runID
}

func (s *CheckpointStore) path(stage string) string {
	return filepath.Join(s.dir, s.runID.String(), stage+".json")
}

// Exists reports whether a checkpoint is present for the stage.
func (s *CheckpointStore) Exists(stage string) bool {
	_, err := os.Stat(s.path(stage))
	return err == nil
}

// Save writes the stage's artifact, overwriting any existing checkpoint.
func (s *CheckpointStore) Save(stage string, a *artifact.Artifact) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return types.WrapError(types.CHECKPOINT_SAVE_FAILED,
			fmt.Sprintf("failed to serialize checkpoint for stage '%s'", stage), err)
	}
	if err := os.WriteFile(s.path(stage), data, 0o644); err != nil {
		return types.WrapError(types.CHECKPOINT_SAVE_FAILED,
			fmt.Sprintf("failed to write checkpoint for stage '%s'", stage), err)
	}
	return nil
}

// Load reads back the stage's checkpoint, or returns (nil, nil) when
// none exists.
func (s *CheckpointStore) Load(stage string) (*artifact.Artifact, error) {
	data, err := os.ReadFile(s.path(stage))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.CHECKPOINT_LOAD_FAILED,
			fmt.Sprintf("failed to read checkpoint for stage '%s'", stage), err)
	}
	var a artifact.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, types.WrapError(types.CHECKPOINT_LOAD_FAILED,
			fmt.Sprintf("failed to parse checkpoint for stage '%s'", stage), err)
	}
	return &a, nil
}

// Clear removes the stage's checkpoint. Clearing a stage that has no
// checkpoint is not an error.
func (s *CheckpointStore) Clear(stage string) error {
	err := os.Remove(s.path(stage))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ClearAll removes every checkpoint for the run.
func (s *CheckpointStore) ClearAll() error {
	stages, err := s.Stages()
	if err != nil {
		return err
	}
	for _, stage := range stages {
		if err := s.Clear(stage); err != nil {
			return err
		}
	}
	return nil
}

// Stages lists the stage names with a saved checkpoint, sorted.
func (s *CheckpointStore) Stages() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, s.runID.String()))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stages []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		stages = append(stages, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(stages)
	return stages, nil
}

// SafeRun executes a stage with checkpoint-based resume. If a
// checkpoint exists for the stage its artifact is returned and the
// stage does not run, so side effects of an already-completed stage
// are not repeated. Otherwise the stage runs and its result is
// checkpointed before being returned.
func SafeRun(ctx context.Context, stage pipeline.Stage, prev *artifact.Artifact, store *CheckpointStore) (*artifact.Artifact, error) {
	if cached, err := store.Load(stage.Name()); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	result, err := stage.Run(ctx, prev)
	if err != nil {
		return nil, err
	}
	if err := store.Save(stage.Name(), result); err != nil {
		return nil, err
	}
	return result, nil
}
