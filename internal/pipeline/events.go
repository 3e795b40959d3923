package pipeline

import (
	"time"

	"github.com/redcell-ai/redcell/internal/types"
)

// EventType identifies a stage transition observed by the orchestrator.
type EventType string

const (
	EventStageRunning   EventType = "running"
	EventStageCompleted EventType = "completed"
	EventStageBlocked   EventType = "blocked"
	EventStageFailed    EventType = "failed"
	EventRunAborted     EventType = "aborted"
	EventRunCompleted   EventType = "run_completed"
)

// Event is one stage transition. Events are for live observation (CLI
// status lines); the artifact log is the durable record.
type Event struct {
	RunID     types.ID
	Stage     string
	Type      EventType
	Reason    string
	Timestamp time.Time
}

// Emitter receives stage transition events. Emit must not block the
// orchestrator; implementations that buffer or drop are acceptable.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(event Event)

func (f EmitterFunc) Emit(event Event) { f(event) }

type nopEmitter struct{}

func (nopEmitter) Emit(Event) {}
