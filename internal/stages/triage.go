package stages

import (
	"context"
	"sort"
	"strings"

	"github.com/redcell-ai/redcell/internal/artifact"
	"github.com/redcell-ai/redcell/internal/types"
)

var (
	highRiskPorts    = map[int]bool{22: true, 23: true, 3389: true, 5432: true, 3306: true, 27017: true, 6379: true}
	mediumRiskPorts  = map[int]bool{21: true, 25: true, 110: true, 143: true, 8080: true, 8443: true}
	highRiskHeaders  = map[string]bool{"x-debug-mode": true, "x-powered-by": true, "server": true}
	highRiskKeywords = []string{"admin", "staging", "dev", "test", "debug"}
)

// Triage scores normalized findings and buckets them into high,
// medium, and low risk. It consumes the normalize stage's output and
// never performs additional reconnaissance.
type Triage struct {
	riskThreshold int
}

// NewTriage creates a triage stage. A score at or above threshold is
// high risk; at or above half the threshold, medium.
func NewTriage(threshold int) *Triage {
	if threshold <= 0 {
		threshold = 5
	}
	return &Triage{riskThreshold: threshold}
}

func (s *Triage) Name() string        { return "triage" }
func (s *Triage) Description() string { return "scores and prioritizes findings by risk level" }
func (s *Triage) Targets() []string   { return nil }

func (s *Triage) Run(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
	if prev == nil {
		return nil, types.NewError(types.STAGE_FAILED, "triage requires a previous artifact")
	}

	// Prefer normalized records; raw findings are accepted as a
	// fallback for pipelines without a normalize stage.
	findings, _ := prev.Output["normalized"].([]any)
	if len(findings) == 0 {
		findings, _ = prev.Output["findings"].([]any)
	}
	if len(findings) == 0 {
		return nil, types.NewError(types.STAGE_FAILED, "no findings to triage")
	}

	scored := make([]any, 0, len(findings))
	for _, item := range findings {
		finding := asMap(item)
		score := s.riskScore(finding)
		entry := make(map[string]any, len(finding)+2)
		for k, v := range finding {
			entry[k] = v
		}
		entry["risk_score"] = score
		entry["risk_level"] = s.level(score)
		scored = append(scored, entry)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scoreOf(scored[i]) > scoreOf(scored[j])
	})

	high := hostsAtLevel(scored, "high")
	medium := hostsAtLevel(scored, "medium")
	low := hostsAtLevel(scored, "low")

	return artifact.FromPrevious(prev, s.Name(), map[string]any{
		"scored_findings": scored,
		"high_risk":       high,
		"medium_risk":     medium,
		"low_risk":        low,
		"summary": map[string]any{
			"total":  len(scored),
			"high":   len(high),
			"medium": len(medium),
			"low":    len(low),
		},
	}, true, ""), nil
}

// riskScore weighs ports, headers, and hostname keywords. High-risk
// ports count 3, medium 1, risky headers 2 (debug headers 3 more),
// hostname keywords 2 each.
func (s *Triage) riskScore(finding map[string]any) int {
	score := 0
	host := strings.ToLower(str(finding["host"]))

	for _, port := range asInts(finding["ports"]) {
		switch {
		case highRiskPorts[port]:
			score += 3
		case mediumRiskPorts[port]:
			score++
		}
	}

	for name := range asMap(finding["headers"]) {
		lower := strings.ToLower(name)
		if highRiskHeaders[lower] {
			score += 2
		}
		if strings.Contains(lower, "debug") {
			score += 3
		}
	}

	for _, keyword := range highRiskKeywords {
		if strings.Contains(host, keyword) {
			score += 2
		}
	}

	return score
}

func (s *Triage) level(score int) string {
	switch {
	case score >= s.riskThreshold:
		return "high"
	case score >= s.riskThreshold/2:
		return "medium"
	default:
		return "low"
	}
}

func scoreOf(item any) int {
	m := asMap(item)
	n, _ := m["risk_score"].(int)
	return n
}

func hostsAtLevel(scored []any, level string) []any {
	hosts := make([]any, 0)
	for _, item := range scored {
		m := asMap(item)
		if str(m["risk_level"]) == level {
			hosts = append(hosts, m["host"])
		}
	}
	return hosts
}
