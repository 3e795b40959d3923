// Package stages provides the reference pipeline stages: passive
// reconnaissance, normalization, risk triage, and report generation.
// Each stage does one job and hands a structured artifact to the next.
package stages

import (
	"context"

	"github.com/redcell-ai/redcell/internal/artifact"
)

// syntheticReconData stands in for real recon tooling (subfinder,
// httpx, nmap) so the pipeline is runnable without touching a network.
var syntheticReconData = map[string]reconData{
	"example.com": {
		Subdomains: []subdomain{
			{Host: "admin.example.com", IP: "192.168.1.10"},
			{Host: "api.example.com", IP: "192.168.1.20"},
			{Host: "cdn.example.com", IP: "192.168.1.30"},
			{Host: "staging.example.com", IP: "192.168.1.40"},
		},
		OpenPorts: map[string][]int{
			"admin.example.com":   {22, 80, 443},
			"api.example.com":     {443, 8080},
			"cdn.example.com":     {80, 443},
			"staging.example.com": {22, 80, 443, 3000, 5432},
		},
		Headers: map[string]map[string]string{
			"admin.example.com": {
				"server":       "nginx/1.18.0",
				"x-powered-by": "PHP/7.4",
			},
			"api.example.com": {
				"server":       "gunicorn",
				"x-powered-by": "Express",
			},
			"staging.example.com": {
				"server":       "Apache/2.4.41",
				"x-debug-mode": "enabled",
			},
		},
	},
}

type reconData struct {
	Subdomains []subdomain
	OpenPorts  map[string][]int
	Headers    map[string]map[string]string
}

type subdomain struct {
	Host string
	IP   string
}

// Recon collects raw target data: subdomains, open ports, and HTTP
// headers. It does not normalize, score, or prioritize; that is the
// job of the downstream stages.
type Recon struct {
	targets []string
}

// NewRecon creates a recon stage for the given root domains. With no
// targets it scans example.com.
func NewRecon(targets ...string) *Recon {
	if len(targets) == 0 {
		targets = []string{"example.com"}
	}
	return &Recon{targets: targets}
}

func (s *Recon) Name() string        { return "recon" }
func (s *Recon) Description() string { return "collects raw reconnaissance data from targets" }
func (s *Recon) Targets() []string   { return s.targets }

// Run enumerates the configured domains. Targets supplied in the
// previous artifact's output override the configured list.
func (s *Recon) Run(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
	targets := s.targets
	if prev != nil {
		if raw, ok := prev.Output["targets"]; ok {
			targets = toStrings(raw)
		}
	}

	findings := make([]map[string]any, 0)
	for _, domain := range targets {
		data := syntheticReconData[domain]
		for _, sub := range data.Subdomains {
			findings = append(findings, map[string]any{
				"host":    sub.Host,
				"ip":      sub.IP,
				"ports":   toAnyInts(data.OpenPorts[sub.Host]),
				"headers": toAnyMap(data.Headers[sub.Host]),
				"domain":  domain,
			})
		}
	}

	return artifact.FromPrevious(prev, s.Name(), map[string]any{
		"targets":     toAnySlice(targets),
		"findings":    toAny(findings),
		"total_hosts": len(findings),
	}, true, ""), nil
}

func toStrings(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func toAnyInts(items []int) []any {
	out := make([]any, len(items))
	for i, n := range items {
		out[i] = n
	}
	return out
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toAny(items []map[string]any) []any {
	out := make([]any, len(items))
	for i, m := range items {
		out[i] = m
	}
	return out
}
