package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func safeHostname() (string, error) { return "workstation.lab", nil }

func TestEnvironmentGate_BlocksProhibitedTargets(t *testing.T) {
	g := NewEnvironmentGate([]string{"prod", "payment"}).
		WithHostnameLookup(safeHostname)

	tests := []struct {
		name    string
		target  string
		allowed bool
	}{
		{"case-insensitive prod match", "PROD.example.com", false},
		{"payment match", "payment.example.com", false},
		{"staging allowed", "staging.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Allow(context.Background(), StaticDescriptor{
				StageName:    "recon",
				StageTargets: []string{tt.target},
			})
			assert.Equal(t, tt.allowed, d.Allowed, d.Reason)
		})
	}
}

func TestEnvironmentGate_BlocksProhibitedHostname(t *testing.T) {
	g := NewEnvironmentGate(nil).
		WithHostnameLookup(func() (string, error) { return "prod-worker-03", nil })

	d := g.Allow(context.Background(), StaticDescriptor{StageName: "recon"})
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "prohibited host")
}

func TestEnvironmentGate_HostnameCheckDisabled(t *testing.T) {
	g := NewEnvironmentGate(nil).
		WithHostnameLookup(func() (string, error) { return "prod-worker-03", nil }).
		SetCheckHostname(false)

	d := g.Allow(context.Background(), StaticDescriptor{
		StageName:    "recon",
		StageTargets: []string{"staging.example.com"},
	})
	assert.True(t, d.Allowed, d.Reason)
}

func TestEnvironmentGate_DefaultPatterns(t *testing.T) {
	g := NewEnvironmentGate(nil).WithHostnameLookup(safeHostname)

	for _, target := range []string{"prod.example.com", "core-db.internal", "live.example.com"} {
		d := g.Allow(context.Background(), StaticDescriptor{
			StageName:    "recon",
			StageTargets: []string{target},
		})
		assert.False(t, d.Allowed, "expected %s to be blocked", target)
	}
}

func TestEnvironmentGate_EnvOverride(t *testing.T) {
	t.Setenv(ProhibitedHostsEnv, "customer, internal")

	g := NewEnvironmentGate(nil).WithHostnameLookup(safeHostname)

	d := g.Allow(context.Background(), StaticDescriptor{
		StageName:    "recon",
		StageTargets: []string{"customer.example.com"},
	})
	assert.False(t, d.Allowed)

	// The built-in defaults are replaced, not extended.
	d = g.Allow(context.Background(), StaticDescriptor{
		StageName:    "recon",
		StageTargets: []string{"prod.example.com"},
	})
	assert.True(t, d.Allowed, d.Reason)
}
