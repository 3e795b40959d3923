package gate

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Chain evaluates a sequence of gates in order. A stage runs only if
// every gate allows it; the first denial short-circuits the chain, and
// the denying gate is always logged.
type Chain struct {
	gates  []Gate
	tracer trace.Tracer
	logger *slog.Logger
}

// NewChain creates a chain with the given gates.
func NewChain(gates ...Gate) *Chain {
	return &Chain{
		gates:  gates,
		logger: slog.Default(),
	}
}

// WithTracer sets the OpenTelemetry tracer for the chain.
func (c *Chain) WithTracer(tracer trace.Tracer) *Chain {
	c.tracer = tracer
	return c
}

// WithLogger sets the logger for the chain.
func (c *Chain) WithLogger(logger *slog.Logger) *Chain {
	c.logger = logger
	return c
}

// Check runs all gates against the stage in order. The returned decision
// names the blocking gate in its reason when denied.
func (c *Chain) Check(ctx context.Context, stage Descriptor) Decision {
	for _, g := range c.gates {
		var span trace.Span
		if c.tracer != nil {
			ctx, span = c.tracer.Start(ctx, "gate.check",
				trace.WithAttributes(
					attribute.String("gate.name", g.Name()),
					attribute.String("gate.type", string(g.Type())),
					attribute.String("stage.name", stage.Name()),
				),
			)
		}

		decision := g.Allow(ctx, stage)
		if span != nil {
			span.SetAttributes(
				attribute.Bool("gate.allowed", decision.Allowed),
				attribute.String("gate.reason", decision.Reason),
			)
			span.End()
		}

		if !decision.Allowed {
			c.logger.InfoContext(ctx, "gate denied stage",
				"gate", g.Name(),
				"stage", stage.Name(),
				"reason", decision.Reason,
			)
			return Deny(fmt.Sprintf("gate '%s': %s", g.Name(), decision.Reason))
		}
	}

	return Allow("all gates passed")
}

// Add returns a new chain with additional gates appended.
func (c *Chain) Add(gates ...Gate) *Chain {
	combined := make([]Gate, 0, len(c.gates)+len(gates))
	combined = append(combined, c.gates...)
	combined = append(combined, gates...)

	return &Chain{
		gates:  combined,
		tracer: c.tracer,
		logger: c.logger,
	}
}

// Gates returns a copy of the chain's gate list.
func (c *Chain) Gates() []Gate {
	result := make([]Gate, len(c.gates))
	copy(result, c.gates)
	return result
}
