package resilience

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redcell-ai/redcell/internal/types"
)

// Alert is one threshold crossing recorded by an AlertTracker.
type Alert struct {
	Stage     string         `json:"stage"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Count     int            `json:"count"`
	Context   map[string]any `json:"context,omitempty"`
}

// AlertTracker counts errors per stage and globally, and raises an
// alert each time a stage's counter reaches the configured threshold.
// Trackers are explicit dependencies; there is no process-wide shared
// instance.
type AlertTracker struct {
	mu        sync.Mutex
	threshold int
	perStage  map[string]int
	global    int
	history   []Alert
	onAlert   func(Alert)
	log       *slog.Logger
}

// AlertOption configures an AlertTracker.
type AlertOption func(*AlertTracker)

// WithAlertCallback invokes fn for every alert raised. The callback
// runs on the recording goroutine while no lock is held.
func WithAlertCallback(fn func(Alert)) AlertOption {
	return func(t *AlertTracker) { t.onAlert = fn }
}

// WithAlertLogger sets the structured logger for raised alerts.
func WithAlertLogger(log *slog.Logger) AlertOption {
	return func(t *AlertTracker) { t.log = log }
}

// NewAlertTracker creates a tracker alerting each time a stage
// accumulates threshold errors.
func NewAlertTracker(threshold int, opts ...AlertOption) *AlertTracker {
	t := &AlertTracker{
		threshold: threshold,
		perStage:  make(map[string]int),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordError increments the stage's counter and the global counter.
// When the stage's counter reaches a multiple of the threshold an
// alert is recorded and the callback, if any, is invoked.
func (t *AlertTracker) RecordError(stage, message string, context map[string]any) {
	t.mu.Lock()
	t.perStage[stage]++
	t.global++
	count := t.perStage[stage]

	var raised *Alert
	if t.threshold > 0 && count%t.threshold == 0 {
		alert := Alert{
			Stage:     stage,
			Message:   message,
			Timestamp: time.Now().UTC(),
			Count:     count,
			Context:   context,
		}
		t.history = append(t.history, alert)
		raised = &alert
	}
	t.mu.Unlock()

	if raised != nil {
		t.log.Warn("error threshold reached",
			"stage", raised.Stage,
			"count", raised.Count,
			"message", raised.Message,
		)
		if t.onAlert != nil {
			t.onAlert(*raised)
		}
	}
}

// StageCount returns the error count for a stage.
func (t *AlertTracker) StageCount(stage string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perStage[stage]
}

// GlobalCount returns the total error count across all stages.
func (t *AlertTracker) GlobalCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.global
}

// History returns a copy of all alerts raised so far.
func (t *AlertTracker) History() []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Alert, len(t.history))
	copy(out, t.history)
	return out
}

// ResetStage zeroes one stage's counter. The global counter and alert
// history are untouched.
func (t *AlertTracker) ResetStage(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.perStage, stage)
}

// Reset zeroes all counters and clears the alert history.
func (t *AlertTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.perStage = make(map[string]int)
	t.global = 0
	t.history = nil
}

// CheckAndAlert is the stateless one-shot variant: it returns an alert
// message when errorCount exceeds threshold, or "" otherwise.
func CheckAndAlert(errorCount int, runID types.ID, threshold int) string {
	if errorCount <= threshold {
		return ""
	}
	return fmt.Sprintf("run %s exceeded error threshold: %d errors (threshold %d)", runID, errorCount, threshold)
}
