package gate

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultProhibited are the patterns blocked when no explicit list is
// configured: production systems, payment processors, core databases.
var DefaultProhibited = []string{"prod", "payment", "core-db", "production", "live"}

// ProhibitedHostsEnv overrides the default prohibited patterns with a
// comma-separated list.
const ProhibitedHostsEnv = "PROHIBITED_HOSTS"

// EnvironmentGate blocks stages that would touch production or otherwise
// sensitive systems. Matching is case-insensitive substring containment
// against the executing machine's own hostname and/or the stage's
// declared targets.
type EnvironmentGate struct {
	prohibited    []string
	checkHostname bool
	checkTargets  bool
	hostname      func() (string, error)
}

// NewEnvironmentGate creates a gate with the given prohibited patterns.
// With a nil list, the PROHIBITED_HOSTS environment variable is consulted
// and the built-in defaults used as the final fallback. Both hostname and
// target checks start enabled.
func NewEnvironmentGate(prohibited []string) *EnvironmentGate {
	if prohibited == nil {
		if env := os.Getenv(ProhibitedHostsEnv); env != "" {
			for _, p := range strings.Split(env, ",") {
				if p = strings.TrimSpace(p); p != "" {
					prohibited = append(prohibited, p)
				}
			}
		} else {
			prohibited = append(prohibited, DefaultProhibited...)
		}
	}
	return &EnvironmentGate{
		prohibited:    prohibited,
		checkHostname: true,
		checkTargets:  true,
		hostname:      os.Hostname,
	}
}

// WithHostnameLookup replaces the hostname source, for tests.
func (g *EnvironmentGate) WithHostnameLookup(fn func() (string, error)) *EnvironmentGate {
	g.hostname = fn
	return g
}

// SetCheckHostname toggles checking the executing machine's hostname.
func (g *EnvironmentGate) SetCheckHostname(enabled bool) *EnvironmentGate {
	g.checkHostname = enabled
	return g
}

// SetCheckTargets toggles checking the stage's declared targets.
func (g *EnvironmentGate) SetCheckTargets(enabled bool) *EnvironmentGate {
	g.checkTargets = enabled
	return g
}

func (g *EnvironmentGate) Name() string { return "environment" }
func (g *EnvironmentGate) Type() Type   { return TypeEnvironment }

// Allow denies when the local hostname or any stage target contains a
// prohibited pattern.
func (g *EnvironmentGate) Allow(ctx context.Context, stage Descriptor) Decision {
	if g.checkHostname {
		if hostname, err := g.hostname(); err == nil {
			if pattern, hit := g.match(hostname); hit {
				return Deny(fmt.Sprintf("running on prohibited host '%s' (pattern '%s')", hostname, pattern))
			}
		}
	}

	if g.checkTargets {
		for _, target := range stage.Targets() {
			if pattern, hit := g.match(target); hit {
				return Deny(fmt.Sprintf("target '%s' matches prohibited pattern '%s'", target, pattern))
			}
		}
	}

	return Allow("no prohibited patterns matched")
}

func (g *EnvironmentGate) match(s string) (string, bool) {
	lower := strings.ToLower(s)
	for _, pattern := range g.prohibited {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return pattern, true
		}
	}
	return "", false
}
