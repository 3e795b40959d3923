package artifact

import (
	"encoding/json"
	"time"

	"github.com/redcell-ai/redcell/internal/types"
)

// Artifact is the auditable record of one pipeline stage execution.
// Artifacts sharing a RunID form a single ordered execution trace; the
// orchestrator assigns the run id once and propagates it to every record.
type Artifact struct {
	RunID     types.ID
	Stage     string
	Input     map[string]any
	Output    map[string]any
	Success   bool
	Error     string
	Timestamp time.Time
}

// record is the canonical wire shape of an artifact: one JSON object per
// log line, timestamp normalized to RFC3339 UTC, error null when absent.
type record struct {
	RunID     types.ID       `json:"run_id"`
	Stage     string         `json:"stage"`
	Input     map[string]any `json:"input"`
	Output    map[string]any `json:"output"`
	Success   bool           `json:"success"`
	Error     *string        `json:"error"`
	Timestamp string         `json:"timestamp"`
}

// New creates an artifact for a stage execution. A fresh run id is
// generated when runID is zero.
func New(runID types.ID, stage string, input, output map[string]any, success bool, errMsg string) *Artifact {
	if runID.IsZero() {
		runID = types.NewID()
	}
	if input == nil {
		input = map[string]any{}
	}
	if output == nil {
		output = map[string]any{}
	}
	return &Artifact{
		RunID:     runID,
		Stage:     stage,
		Input:     input,
		Output:    output,
		Success:   success,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	}
}

// FromPrevious creates an artifact chained to the previous stage's result:
// the new artifact reuses the previous run id and takes the previous output
// as its input. With a nil previous artifact a fresh run id is generated
// and the input is empty.
func FromPrevious(previous *Artifact, stage string, output map[string]any, success bool, errMsg string) *Artifact {
	var runID types.ID
	input := map[string]any{}
	if previous != nil {
		runID = previous.RunID
		if previous.Output != nil {
			input = previous.Output
		}
	}
	return New(runID, stage, input, output, success, errMsg)
}

// MarshalJSON implements json.Marshaler using the canonical record shape.
func (a *Artifact) MarshalJSON() ([]byte, error) {
	r := record{
		RunID:     a.RunID,
		Stage:     a.Stage,
		Input:     a.Input,
		Output:    a.Output,
		Success:   a.Success,
		Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
	}
	if r.Input == nil {
		r.Input = map[string]any{}
	}
	if r.Output == nil {
		r.Output = map[string]any{}
	}
	if a.Error != "" {
		msg := a.Error
		r.Error = &msg
	}
	return json.Marshal(r)
}

// UnmarshalJSON implements json.Unmarshaler for the canonical record shape.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil && r.Timestamp != "" {
		return err
	}

	a.RunID = r.RunID
	a.Stage = r.Stage
	a.Input = r.Input
	a.Output = r.Output
	a.Success = r.Success
	if r.Error != nil {
		a.Error = *r.Error
	} else {
		a.Error = ""
	}
	a.Timestamp = ts
	if a.Input == nil {
		a.Input = map[string]any{}
	}
	if a.Output == nil {
		a.Output = map[string]any{}
	}
	return nil
}
