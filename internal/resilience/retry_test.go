package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcell-ai/redcell/internal/artifact"
	"github.com/redcell-ai/redcell/internal/pipeline"
)

// countingStage fails until attempt failUntil, then succeeds.
type countingStage struct {
	name      string
	failUntil int
	calls     int
}

func (s *countingStage) Name() string        { return s.name }
func (s *countingStage) Description() string { return "" }
func (s *countingStage) Targets() []string   { return nil }

func (s *countingStage) Run(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
	s.calls++
	if s.calls < s.failUntil {
		return nil, fmt.Errorf("transient failure on call %d", s.calls)
	}
	return artifact.FromPrevious(prev, s.name, map[string]any{"call": s.calls}, true, ""), nil
}

func noSleep() (func(ctx context.Context, d time.Duration) error, *[]time.Duration) {
	var delays []time.Duration
	return func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}, &delays
}

func TestRetry_SucceedsOnThirdAttempt(t *testing.T) {
	stage := &countingStage{name: "probe", failUntil: 3}
	sleep, delays := noSleep()

	var callbackAttempts []int
	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		OnRetry:     func(err error, attempt int) { callbackAttempts = append(callbackAttempts, attempt) },
		sleep:       sleep,
	}

	result, err := Retry(context.Background(), stage, nil, cfg)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, map[string]any{"call": 3}, result.Output)
	assert.Equal(t, 3, stage.calls)
	// Callback fires for the two failed attempts that were retried.
	assert.Equal(t, []int{1, 2}, callbackAttempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestRetry_ExhaustionAfterMaxAttempts(t *testing.T) {
	stage := &countingStage{name: "probe", failUntil: 100}
	sleep, delays := noSleep()

	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, sleep: sleep}
	result, err := Retry(context.Background(), stage, nil, cfg)
	assert.Nil(t, result)
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "probe", exhausted.Stage)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Contains(t, err.Error(), "failed after 3 attempts")

	// Exactly 3 attempts and 2 sleeps: no sleep after the final failure.
	assert.Equal(t, 3, stage.calls)
	assert.Len(t, *delays, 2)
}

func TestRetry_BackoffCappedAtMaxDelay(t *testing.T) {
	stage := &countingStage{name: "probe", failUntil: 100}
	sleep, delays := noSleep()

	cfg := RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    3 * time.Second,
		sleep:       sleep,
	}
	_, err := Retry(context.Background(), stage, nil, cfg)
	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		time.Second,
		2 * time.Second,
		3 * time.Second,
		3 * time.Second,
	}, *delays)
}

func TestRetry_FirstAttemptSuccessSkipsBackoff(t *testing.T) {
	stage := &countingStage{name: "probe", failUntil: 1}
	sleep, delays := noSleep()

	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, sleep: sleep}
	result, err := Retry(context.Background(), stage, nil, cfg)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, stage.calls)
	assert.Empty(t, *delays)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	stage := &countingStage{name: "probe", failUntil: 100}
	ctx, cancel := context.WithCancel(context.Background())

	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	_, err := Retry(ctx, stage, nil, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stage.calls)
}

func TestWithRetry_SatisfiesStage(t *testing.T) {
	inner := &countingStage{name: "probe", failUntil: 2}
	sleep, _ := noSleep()
	wrapped := WithRetry(inner, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, sleep: sleep})

	var _ pipeline.Stage = wrapped
	assert.Equal(t, "probe", wrapped.Name())

	result, err := wrapped.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"call": 2}, result.Output)
}
