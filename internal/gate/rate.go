package gate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// CountGate is the simplest rate gate: allow while the number of executed
// actions stays below a fixed maximum. Each allowed check counts as one
// action.
type CountGate struct {
	max   int64
	count atomic.Int64
}

// NewCountGate creates a gate allowing at most maxActions stage
// executions.
func NewCountGate(maxActions int) *CountGate {
	return &CountGate{max: int64(maxActions)}
}

func (g *CountGate) Name() string { return "count" }
func (g *CountGate) Type() Type   { return TypeRate }

// Allow permits the stage while the action budget lasts.
func (g *CountGate) Allow(ctx context.Context, stage Descriptor) Decision {
	count := g.count.Load()
	if count >= g.max {
		return Deny(fmt.Sprintf("rate limit exceeded: %d/%d actions", count, g.max))
	}
	g.count.Add(1)
	return Allow(fmt.Sprintf("%d actions remaining", g.max-count-1))
}

// Count returns the number of actions allowed so far.
func (g *CountGate) Count() int {
	return int(g.count.Load())
}

// RateLimit is the stateless variant: allow iff actionCount < maxActions.
func RateLimit(actionCount, maxActions int) Decision {
	if actionCount < maxActions {
		return Allow(fmt.Sprintf("%d actions remaining", maxActions-actionCount))
	}
	return Deny(fmt.Sprintf("rate limit exceeded: %d/%d actions", actionCount, maxActions))
}

// WindowRateGate throttles stage execution to a request budget per time
// window using a token bucket.
type WindowRateGate struct {
	limiter     *rate.Limiter
	maxRequests int
	window      time.Duration
}

// NewWindowRateGate creates a gate allowing maxRequests per window with a
// burst capacity of maxRequests.
func NewWindowRateGate(maxRequests int, window time.Duration) *WindowRateGate {
	perSecond := float64(maxRequests) / window.Seconds()
	return &WindowRateGate{
		limiter:     rate.NewLimiter(rate.Limit(perSecond), maxRequests),
		maxRequests: maxRequests,
		window:      window,
	}
}

func (g *WindowRateGate) Name() string { return "rate-window" }
func (g *WindowRateGate) Type() Type   { return TypeRate }

// Allow consumes one token from the bucket.
func (g *WindowRateGate) Allow(ctx context.Context, stage Descriptor) Decision {
	if !g.limiter.Allow() {
		return Deny(fmt.Sprintf("rate limit exceeded: max %d requests per %s", g.maxRequests, g.window))
	}
	return Allow("within rate limit")
}
