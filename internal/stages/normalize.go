package stages

import (
	"context"
	"strings"
	"time"

	"github.com/redcell-ai/redcell/internal/artifact"
)

const normalizedSchemaVersion = "1.0.0"

var (
	sensitivePorts = map[int]bool{22: true, 3306: true, 5432: true, 27017: true, 6379: true}
	devPorts       = map[int]bool{3000: true, 4000: true, 5000: true, 8000: true, 8080: true, 9000: true}
)

// inferSignals derives indicator strings from one raw recon record.
// Signals are hints for triage (admin_panel, debug_enabled, ...), not
// scores.
func inferSignals(record map[string]any) []any {
	signals := make([]any, 0)

	host := strings.ToLower(str(record["host"]))
	if strings.Contains(host, "admin") {
		signals = append(signals, "admin_panel")
	}
	if strings.Contains(host, "staging") || strings.Contains(host, "dev") {
		signals = append(signals, "non_production")
	}

	headers := asMap(record["headers"])
	if str(headers["x-debug-mode"]) == "enabled" {
		signals = append(signals, "debug_enabled")
	}
	if _, ok := headers["x-powered-by"]; ok {
		signals = append(signals, "tech_disclosure")
	}

	ports := asInts(record["ports"])
	if anyPort(ports, sensitivePorts) {
		signals = append(signals, "sensitive_port")
	}
	if anyPort(ports, devPorts) {
		signals = append(signals, "dev_port")
	}

	return signals
}

// Normalize converts raw recon output into a predictable schema for
// triage. Records without a host field are counted and skipped. It
// never scores or filters beyond that basic validation.
type Normalize struct{}

// NewNormalize creates the normalization stage.
func NewNormalize() *Normalize {
	return &Normalize{}
}

func (s *Normalize) Name() string        { return "recon_normalize" }
func (s *Normalize) Description() string { return "normalizes raw recon data into structured schema" }
func (s *Normalize) Targets() []string   { return nil }

func (s *Normalize) Run(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
	var raw []any
	if prev != nil {
		raw, _ = prev.Output["findings"].([]any)
	}
	if raw == nil {
		return artifact.FromPrevious(prev, s.Name(), map[string]any{
			"normalized":    []any{},
			"total_records": 0,
			"skipped":       0,
		}, true, ""), nil
	}

	normalized := make([]any, 0, len(raw))
	skipped := 0
	now := time.Now().UTC().Format(time.RFC3339)

	for _, item := range raw {
		record := asMap(item)
		if str(record["host"]) == "" {
			skipped++
			continue
		}
		normalized = append(normalized, map[string]any{
			"host":    record["host"],
			"path":    orDefault(record["path"], "/"),
			"status":  orDefault(record["status"], 0),
			"title":   orDefault(record["title"], ""),
			"ip":      orDefault(record["ip"], "unknown"),
			"ports":   orDefault(record["ports"], []any{}),
			"headers": orDefault(record["headers"], map[string]any{}),
			"signals": inferSignals(record),
			"ts":      now,
		})
	}

	return artifact.FromPrevious(prev, s.Name(), map[string]any{
		"normalized":     normalized,
		"total_records":  len(normalized),
		"skipped":        skipped,
		"schema_version": normalizedSchemaVersion,
	}, true, ""), nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asInts tolerates both native ints and float64 from JSON round trips.
func asInts(v any) []int {
	items, _ := v.([]any)
	out := make([]int, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case int:
			out = append(out, n)
		case float64:
			out = append(out, int(n))
		}
	}
	return out
}

func anyPort(ports []int, set map[int]bool) bool {
	for _, p := range ports {
		if set[p] {
			return true
		}
	}
	return false
}

func orDefault(v, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}
