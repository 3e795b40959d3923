package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/redcell-ai/redcell/internal/artifact"
	"github.com/redcell-ai/redcell/internal/types"
)

// Report renders triage output as a markdown summary with an executive
// risk table, the high-risk host list, and per-host details. When an
// output directory is configured the report is also written to disk.
type Report struct {
	outputDir      string
	includeDetails bool
	now            func() time.Time
}

// ReportOption configures a Report stage.
type ReportOption func(*Report)

// WithOutputDir saves each generated report under dir.
func WithOutputDir(dir string) ReportOption {
	return func(r *Report) { r.outputDir = dir }
}

// WithoutDetails omits the per-host detail sections.
func WithoutDetails() ReportOption {
	return func(r *Report) { r.includeDetails = false }
}

// NewReport creates the report stage.
func NewReport(opts ...ReportOption) *Report {
	r := &Report{includeDetails: true, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (s *Report) Name() string        { return "report" }
func (s *Report) Description() string { return "generates markdown summary reports" }
func (s *Report) Targets() []string   { return nil }

func (s *Report) Run(ctx context.Context, prev *artifact.Artifact) (*artifact.Artifact, error) {
	if prev == nil {
		return nil, types.NewError(types.STAGE_FAILED, "report requires triage output")
	}

	content := s.render(prev)
	output := map[string]any{
		"report_content": content,
		"generated_at":   s.now().UTC().Format(time.RFC3339),
	}

	if s.outputDir != "" {
		path, err := s.save(content, prev.RunID)
		if err != nil {
			return nil, err
		}
		output["report_path"] = path
	}

	return artifact.FromPrevious(prev, s.Name(), output, true, ""), nil
}

func (s *Report) render(prev *artifact.Artifact) string {
	data := prev.Output
	now := s.now().UTC()
	var b strings.Builder

	b.WriteString("# Security Reconnaissance Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s UTC\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Run ID:** `%s`\n\n", prev.RunID)

	summary := asMap(data["summary"])
	high := count(summary["high"], data["high_risk"])
	medium := count(summary["medium"], data["medium_risk"])
	low := count(summary["low"], data["low_risk"])
	total := high + medium + low
	if n, ok := toInt(summary["total"]); ok {
		total = n
	}

	b.WriteString("## Executive Summary\n\n")
	b.WriteString("| Risk Level | Count |\n")
	b.WriteString("|------------|-------|\n")
	fmt.Fprintf(&b, "| High       | %d     |\n", high)
	fmt.Fprintf(&b, "| Medium     | %d     |\n", medium)
	fmt.Fprintf(&b, "| Low        | %d     |\n", low)
	fmt.Fprintf(&b, "| **Total**  | **%d** |\n\n", total)

	if hosts, _ := data["high_risk"].([]any); len(hosts) > 0 {
		b.WriteString("## High-Risk Findings\n\n")
		b.WriteString("The following targets require immediate attention:\n\n")
		for _, host := range hosts {
			fmt.Fprintf(&b, "- `%s`\n", str(host))
		}
		b.WriteString("\n")
	}

	if s.includeDetails {
		if findings, _ := data["scored_findings"].([]any); len(findings) > 0 {
			b.WriteString("## Detailed Findings\n\n")
			for _, item := range findings {
				s.renderFinding(&b, asMap(item))
			}
		}
	}

	b.WriteString("## Recommendations\n\n")
	if high > 0 {
		b.WriteString("1. **Immediately review** all high-risk findings\n")
		b.WriteString("2. **Disable debug modes** on staging/development systems\n")
		b.WriteString("3. **Restrict access** to administrative interfaces\n")
		b.WriteString("4. **Update software** to remove version disclosure headers\n")
	} else {
		b.WriteString("No high-risk findings detected. Continue monitoring.\n")
	}
	b.WriteString("\n---\n")

	return b.String()
}

func (s *Report) renderFinding(b *strings.Builder, finding map[string]any) {
	host := str(finding["host"])
	if host == "" {
		host = "unknown"
	}
	level := str(finding["risk_level"])
	score, _ := toInt(finding["risk_score"])

	marker := map[string]string{"high": "!!", "medium": "!", "low": "o"}[level]
	if marker == "" {
		marker = "?"
	}

	fmt.Fprintf(b, "### [%s] %s\n\n", marker, host)
	fmt.Fprintf(b, "- **Risk Level:** %s (score: %d)\n", strings.ToUpper(level), score)
	fmt.Fprintf(b, "- **IP:** %s\n", orDefault(finding["ip"], "unknown"))

	if ports := asInts(finding["ports"]); len(ports) > 0 {
		parts := make([]string, len(ports))
		for i, p := range ports {
			parts[i] = fmt.Sprint(p)
		}
		fmt.Fprintf(b, "- **Open Ports:** %s\n", strings.Join(parts, ", "))
	}

	if headers := asMap(finding["headers"]); len(headers) > 0 {
		b.WriteString("- **HTTP Headers:**\n")
		names := make([]string, 0, len(headers))
		for name := range headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(b, "  - `%s`: `%s`\n", name, str(headers[name]))
		}
	}
	b.WriteString("\n")
}

func (s *Report) save(content string, runID types.ID) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", types.WrapError(types.ARTIFACT_WRITE_FAILED, "failed to create report directory", err)
	}
	id := runID.String()
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("report_%s_%s.md", s.now().UTC().Format("20060102_150405"), id)
	path := filepath.Join(s.outputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", types.WrapError(types.ARTIFACT_WRITE_FAILED, "failed to write report", err)
	}
	return path, nil
}

func count(summary any, hosts any) int {
	if n, ok := toInt(summary); ok {
		return n
	}
	items, _ := hosts.([]any)
	return len(items)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
