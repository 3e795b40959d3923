package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/redcell-ai/redcell/internal/artifact"
	"github.com/redcell-ai/redcell/internal/pipeline"
)

// RetryConfig controls the exponential backoff schedule. The delay
// before attempt n+1 is min(BaseDelay * 2^(n-1), MaxDelay).
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
	// OnRetry, when set, is called after each failed attempt that will
	// be retried, with the error and the 1-based attempt number. It is
	// not called for the final failed attempt.
	OnRetry func(err error, attempt int)

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig matches the schedule used by the example stages:
// three attempts, one second base delay, thirty second cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// ExhaustedError reports that every retry attempt failed. It is
// distinct from a single stage failure so callers can tell "failed
// once" from "failed after N attempts".
type ExhaustedError struct {
	Stage    string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("stage '%s' failed after %d attempts: %v", e.Stage, e.Attempts, e.Err)
}

// Unwrap returns the last underlying failure.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Retry executes a stage with exponential backoff. Any attempt that
// succeeds returns immediately; earlier failed attempts are discarded.
// If every attempt fails the last error is wrapped in an
// *ExhaustedError naming the stage.
//
// Retrying does not deduplicate side effects. A stage that performs a
// real-world action will genuinely repeat it on retry; idempotence is
// the stage implementer's responsibility.
func Retry(ctx context.Context, stage pipeline.Stage, prev *artifact.Artifact, cfg RetryConfig) (*artifact.Artifact, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	sleep := cfg.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := stage.Run(ctx, prev)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(err, attempt)
		}
		delay := cfg.BaseDelay << (attempt - 1)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &ExhaustedError{Stage: stage.Name(), Attempts: cfg.MaxAttempts, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// RetryableStage wraps a stage so the orchestrator transparently runs
// it under the retry schedule. Only the final result is logged by the
// orchestrator; intermediate attempts are visible through OnRetry.
type RetryableStage struct {
	inner pipeline.Stage
	cfg   RetryConfig
}

// WithRetry decorates a stage with the given retry schedule.
func WithRetry(stage pipeline.Stage, cfg RetryConfig) *RetryableStage {
	return &RetryableStage{inner: stage, cfg: cfg}
}

func (s *RetryableStage) Name() string        { return s.inner.Name() }
func (s *RetryableStage) Description() string { return s.inner.Description() }
func (s *RetryableStage) Targets() []string   { return s.inner.Targets() }

func (s *RetryableStage) Run(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
	return Retry(ctx, s.inner, prev, s.cfg)
}
