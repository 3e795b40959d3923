package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcell-ai/redcell/internal/types"
)

func TestAlertTracker_ThresholdTriggersOnce(t *testing.T) {
	var alerts []Alert
	tracker := NewAlertTracker(3, WithAlertCallback(func(a Alert) { alerts = append(alerts, a) }))

	tracker.RecordError("recon", "dns timeout", nil)
	tracker.RecordError("recon", "dns timeout", nil)
	assert.Empty(t, alerts)

	tracker.RecordError("recon", "dns timeout", map[string]any{"host": "a.example.com"})
	require.Len(t, alerts, 1)
	assert.Equal(t, "recon", alerts[0].Stage)
	assert.Equal(t, 3, alerts[0].Count)
	assert.Equal(t, map[string]any{"host": "a.example.com"}, alerts[0].Context)
	assert.False(t, alerts[0].Timestamp.IsZero())
	assert.Len(t, tracker.History(), 1)
}

func TestAlertTracker_SeparateStagesDoNotCombine(t *testing.T) {
	var alerts []Alert
	tracker := NewAlertTracker(3, WithAlertCallback(func(a Alert) { alerts = append(alerts, a) }))

	tracker.RecordError("recon", "err", nil)
	tracker.RecordError("recon", "err", nil)
	tracker.RecordError("triage", "err", nil)
	tracker.RecordError("triage", "err", nil)

	// Four errors total but neither stage reached the threshold.
	assert.Empty(t, alerts)
	assert.Equal(t, 4, tracker.GlobalCount())
	assert.Equal(t, 2, tracker.StageCount("recon"))
	assert.Equal(t, 2, tracker.StageCount("triage"))
}

func TestAlertTracker_RepeatedThresholdCrossings(t *testing.T) {
	var alerts []Alert
	tracker := NewAlertTracker(2, WithAlertCallback(func(a Alert) { alerts = append(alerts, a) }))

	for i := 0; i < 6; i++ {
		tracker.RecordError("recon", "err", nil)
	}
	assert.Len(t, alerts, 3)
	assert.Equal(t, 2, alerts[0].Count)
	assert.Equal(t, 4, alerts[1].Count)
	assert.Equal(t, 6, alerts[2].Count)
}

func TestAlertTracker_ResetStage(t *testing.T) {
	tracker := NewAlertTracker(3)
	tracker.RecordError("recon", "err", nil)
	tracker.RecordError("recon", "err", nil)

	tracker.ResetStage("recon")
	assert.Equal(t, 0, tracker.StageCount("recon"))
	// The global counter is independent of per-stage resets.
	assert.Equal(t, 2, tracker.GlobalCount())

	tracker.Reset()
	assert.Equal(t, 0, tracker.GlobalCount())
	assert.Empty(t, tracker.History())
}

func TestCheckAndAlert(t *testing.T) {
	runID := types.NewID()

	assert.Empty(t, CheckAndAlert(3, runID, 3))
	msg := CheckAndAlert(4, runID, 3)
	assert.Contains(t, msg, runID.String())
	assert.Contains(t, msg, "4 errors")
}
