// Package gate implements the safety checks consulted before each
// pipeline stage executes. Gates embed governance directly into the
// orchestration layer: time windows, scope boundaries, production
// blocklists, and human approval.
package gate

import "context"

// Type defines the category of gate.
type Type string

const (
	TypeTime        Type = "time"
	TypeScope       Type = "scope"
	TypeEnvironment Type = "environment"
	TypeApproval    Type = "approval"
	TypeRate        Type = "rate"
)

// Descriptor is the minimal view of a pipeline stage a gate decides on.
// Targets is explicit: stages declare what they touch instead of gates
// probing arbitrary configuration for hostnames.
type Descriptor interface {
	Name() string
	Description() string
	Targets() []string
}

// Gate decides whether a stage is allowed to execute.
type Gate interface {
	Name() string
	Type() Type
	Allow(ctx context.Context, stage Descriptor) Decision
}

// Decision is the outcome of one gate check. A denial is normal control
// flow, not an error: the orchestrator skips the stage and continues.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow creates an allowing decision.
func Allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason}
}

// Deny creates a denying decision.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// StaticDescriptor is a plain-value Descriptor for callers that gate
// actions outside a full pipeline stage (batch approval, CLI checks).
type StaticDescriptor struct {
	StageName        string
	StageDescription string
	StageTargets     []string
}

func (d StaticDescriptor) Name() string        { return d.StageName }
func (d StaticDescriptor) Description() string { return d.StageDescription }
func (d StaticDescriptor) Targets() []string   { return d.StageTargets }
