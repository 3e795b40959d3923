package artifact

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcell-ai/redcell/internal/types"
)

func TestNew_GeneratesRunID(t *testing.T) {
	a := New("", "recon", nil, map[string]any{"hosts": 3}, true, "")

	require.NoError(t, a.RunID.Validate())
	assert.Equal(t, "recon", a.Stage)
	assert.True(t, a.Success)
	assert.Empty(t, a.Error)
	assert.NotNil(t, a.Input)
	assert.False(t, a.Timestamp.IsZero())
}

func TestNew_KeepsExplicitRunID(t *testing.T) {
	runID := types.NewID()
	a := New(runID, "recon", nil, nil, true, "")
	assert.Equal(t, runID, a.RunID)
}

func TestFromPrevious_ChainsRunIDAndInput(t *testing.T) {
	prev := New("", "recon", nil, map[string]any{"findings": []any{"a", "b"}}, true, "")

	next := FromPrevious(prev, "triage", map[string]any{"scored": 2}, true, "")

	assert.Equal(t, prev.RunID, next.RunID)
	assert.Equal(t, prev.Output, next.Input)
	assert.Equal(t, "triage", next.Stage)
}

func TestFromPrevious_NilPrevious(t *testing.T) {
	a := FromPrevious(nil, "recon", map[string]any{"ok": true}, true, "")

	require.NoError(t, a.RunID.Validate())
	assert.Empty(t, a.Input)
}

func TestArtifact_MarshalJSON_Canonical(t *testing.T) {
	a := New(types.NewID(), "recon", map[string]any{}, map[string]any{}, true, "")
	a.Timestamp = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "recon", raw["stage"])
	assert.Equal(t, true, raw["success"])
	assert.Equal(t, "2026-03-14T09:26:53Z", raw["timestamp"])

	// Error is serialized as explicit null on success.
	v, present := raw["error"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestArtifact_MarshalJSON_Error(t *testing.T) {
	a := New("", "probe", nil, nil, false, "connection refused")

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "connection refused", raw["error"])
	assert.Equal(t, false, raw["success"])
}

func TestArtifact_JSONRoundTrip(t *testing.T) {
	a := New("", "triage", map[string]any{"count": float64(2)}, map[string]any{"high": float64(1)}, false, "timeout")

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded Artifact
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, a.RunID, decoded.RunID)
	assert.Equal(t, a.Stage, decoded.Stage)
	assert.Equal(t, a.Input, decoded.Input)
	assert.Equal(t, a.Output, decoded.Output)
	assert.Equal(t, a.Success, decoded.Success)
	assert.Equal(t, a.Error, decoded.Error)
	assert.Equal(t, a.Timestamp.Truncate(time.Second).UTC(), decoded.Timestamp)
}
