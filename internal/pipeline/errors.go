package pipeline

import (
	"fmt"

	"github.com/redcell-ai/redcell/internal/types"
)

// ErrAborted is returned when the kill switch engages between stages.
var ErrAborted = types.NewError(types.PIPELINE_ABORTED, "run aborted by kill switch")

// StageError reports that a stage's execution failed. The orchestrator
// logs a failed artifact and halts the pipeline; the error then surfaces
// to the caller with the underlying cause attached.
type StageError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage '%s' failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying stage error.
func (e *StageError) Unwrap() error {
	return e.Err
}
