package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/redcell-ai/redcell/internal/scope"
)

// ScopeGate ensures a stage's targets stay within the authorized
// engagement scope. Authorized domains and excluded patterns are plain
// substrings; an optional scope.Checker adds glob-pattern file-based
// policy on top. Exclusions always win.
//
// A stage that declares no targets is allowed by default.
type ScopeGate struct {
	authorizedDomains []string
	excludedPatterns  []string
	checker           *scope.Checker
}

// NewScopeGate creates a gate from substring lists.
func NewScopeGate(authorizedDomains, excludedPatterns []string) *ScopeGate {
	return &ScopeGate{
		authorizedDomains: authorizedDomains,
		excludedPatterns:  excludedPatterns,
	}
}

// WithChecker adds a file-based scope checker. Targets must also satisfy
// the checker's allowed/forbidden patterns.
func (g *ScopeGate) WithChecker(checker *scope.Checker) *ScopeGate {
	g.checker = checker
	return g
}

func (g *ScopeGate) Name() string { return "scope" }
func (g *ScopeGate) Type() Type   { return TypeScope }

// Allow checks every declared target; all must pass.
func (g *ScopeGate) Allow(ctx context.Context, stage Descriptor) Decision {
	targets := stage.Targets()
	if len(targets) == 0 {
		return Allow("no targets to check")
	}

	for _, target := range targets {
		for _, pattern := range g.excludedPatterns {
			if strings.Contains(target, pattern) {
				return Deny(fmt.Sprintf("target '%s' matches excluded pattern '%s'", target, pattern))
			}
		}

		if len(g.authorizedDomains) > 0 && !g.inAuthorizedDomains(target) {
			return Deny(fmt.Sprintf("target '%s' not in authorized domains", target))
		}

		if g.checker != nil {
			if ok, reason := g.checker.IsAllowed(target); !ok {
				return Deny(fmt.Sprintf("target '%s' out of scope: %s", target, reason))
			}
		}
	}

	return Allow(fmt.Sprintf("%d target(s) within scope", len(targets)))
}

func (g *ScopeGate) inAuthorizedDomains(target string) bool {
	for _, domain := range g.authorizedDomains {
		if strings.Contains(target, domain) {
			return true
		}
	}
	return false
}
