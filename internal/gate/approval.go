package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter is the console capability gates depend on: print a prompt,
// read one line. Production reads standard input; tests substitute
// canned answers.
type Prompter interface {
	Prompt(text string) (string, error)
}

// Confirmer asks a yes/no question. Any input-stream termination or
// interruption resolves to "no", never to an error escaping the gate.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// ConsolePrompter reads confirmation lines from an input stream.
// When the stream is standard input and not attached to a terminal,
// prompts auto-deny instead of blocking an unattended run.
type ConsolePrompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// NewConsolePrompter creates a prompter over the given streams.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{
		in:     in,
		out:    out,
		reader: bufio.NewReader(in),
	}
}

// NewStdinPrompter creates a prompter over standard input/error.
func NewStdinPrompter() *ConsolePrompter {
	return NewConsolePrompter(os.Stdin, os.Stderr)
}

// Prompt prints text and reads one line.
func (p *ConsolePrompter) Prompt(text string) (string, error) {
	if f, ok := p.in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(p.out, "%s (non-interactive, auto-deny)\n", text)
		return "", io.EOF
	}

	fmt.Fprint(p.out, text)
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks a yes/no question; a trimmed, case-insensitive response
// starting with "y" approves.
func (p *ConsolePrompter) Confirm(prompt string) bool {
	line, err := p.Prompt(prompt)
	if err != nil {
		return false
	}
	return isYes(line)
}

func isYes(line string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y")
}

// ApprovalGate requires human confirmation before a stage executes.
// Essential for high-risk operations, compliance requirements, and
// demonstration scenarios.
type ApprovalGate struct {
	requireFor  []string // nil means every stage requires approval
	autoApprove bool
	confirmer   Confirmer
}

// NewApprovalGate creates a gate requiring approval for the named stages.
// A nil list means all stages require approval. The default confirmer
// reads standard input.
func NewApprovalGate(requireFor []string) *ApprovalGate {
	return &ApprovalGate{
		requireFor: requireFor,
		confirmer:  NewStdinPrompter(),
	}
}

// WithConfirmer replaces the confirmation source.
func (g *ApprovalGate) WithConfirmer(c Confirmer) *ApprovalGate {
	g.confirmer = c
	return g
}

// SetAutoApprove enables unattended approval of every gated stage.
func (g *ApprovalGate) SetAutoApprove(enabled bool) *ApprovalGate {
	g.autoApprove = enabled
	return g
}

func (g *ApprovalGate) Name() string { return "approval" }
func (g *ApprovalGate) Type() Type   { return TypeApproval }

// Allow asks for confirmation when the stage requires it.
func (g *ApprovalGate) Allow(ctx context.Context, stage Descriptor) Decision {
	if g.requireFor != nil && !contains(g.requireFor, stage.Name()) {
		return Allow("approval not required")
	}

	if g.autoApprove {
		return Allow("auto-approved")
	}

	prompt := fmt.Sprintf("Approve execution of '%s'", stage.Name())
	if desc := stage.Description(); desc != "" {
		prompt = fmt.Sprintf("%s (%s)", prompt, desc)
	}
	if g.confirmer.Confirm(prompt + "? (y/n): ") {
		return Allow("approved by operator")
	}
	return Deny("denied by operator")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// BatchItem is one (action, target) pair submitted for batch approval.
type BatchItem struct {
	Action string
	Target string
}

// BatchApprove confirms a list of proposed actions. When allowBatch is
// set, a single combined answer of "y"/"n" approves or denies everything;
// any other answer falls back to confirming each item individually. The
// returned slice preserves input order.
func BatchApprove(p Prompter, items []BatchItem, allowBatch bool) []bool {
	if len(items) == 0 {
		return nil
	}

	approvals := make([]bool, len(items))

	if allowBatch {
		line, err := p.Prompt(fmt.Sprintf("Approve all %d actions? (y/n/individual): ", len(items)))
		if err == nil {
			switch {
			case isYes(line):
				for i := range approvals {
					approvals[i] = true
				}
				return approvals
			case strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "n"):
				return approvals
			}
		} else {
			// Stream ended: deny everything.
			return approvals
		}
	}

	for i, item := range items {
		line, err := p.Prompt(fmt.Sprintf("Approve '%s' on %s? (y/n): ", item.Action, item.Target))
		if err != nil {
			break
		}
		approvals[i] = isYes(line)
	}
	return approvals
}
