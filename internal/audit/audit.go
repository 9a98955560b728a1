// Package audit persists one Markdown + one JSON artifact per council
// run. The two renderings are generated from the same Report struct so
// they can never diverge, which is the property SOC2 evidence depends
// on per spec's Audit Logger section.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"govctl/internal/obslog"
	"govctl/internal/store"
)

// RoleVerdict is one role's final answer for the run.
type RoleVerdict struct {
	Role     string   `json:"role"`
	Verdict  string   `json:"verdict"` // PASS | BLOCK | needs-info
	Findings []string `json:"findings"`
}

// SuppressionEntry records one EXC firing during the run.
type SuppressionEntry struct {
	ExceptionID string `json:"exception_id"`
	RuleMatched string `json:"rule_matched"`
	File        string `json:"file"`
}

// Report is the full, engine-agnostic record of one council run.
type Report struct {
	RunID             string             `json:"run_id"`
	StoryID           string             `json:"story_id,omitempty"`
	BaseRef           string             `json:"base_ref"`
	HeadRef           string             `json:"head_ref"`
	Engine            string             `json:"engine"`
	AggregateVerdict  string             `json:"aggregate_verdict"`
	RoleVerdicts      []RoleVerdict      `json:"role_verdicts"`
	Suppressions      []SuppressionEntry `json:"suppressions"`
	CitationRate      float64            `json:"citation_rate"`
	HallucinationRate float64            `json:"hallucination_rate"`
	StartedAt         time.Time          `json:"started_at"`
	FinishedAt        time.Time          `json:"finished_at"`
}

// Duration is a convenience accessor used by both renderers.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Logger writes Report artifacts under workspaceRoot/.agent/audit and
// records a row in the shared store's council_runs table.
type Logger struct {
	dir string
	st  *store.Store
}

// NewLogger creates (if needed) the audit output directory.
func NewLogger(workspaceRoot string, st *store.Store) (*Logger, error) {
	dir := filepath.Join(workspaceRoot, ".agent", "audit")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("audit: mkdir %s: %w", dir, err)
	}
	return &Logger{dir: dir, st: st}, nil
}

// Write renders r as both Markdown and JSON, writes both files, and
// records a council_runs row if a store is attached.
func (l *Logger) Write(r *Report) (mdPath, jsonPath string, err error) {
	log := obslog.Get(obslog.CategoryAudit)
	stamp := r.StartedAt.UTC().Format("20060102T150405Z")
	base := fmt.Sprintf("%s_%s", stamp, safeName(r.RunID))

	mdPath = filepath.Join(l.dir, base+".md")
	jsonPath = filepath.Join(l.dir, base+".json")

	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(r)), 0o600); err != nil {
		return "", "", fmt.Errorf("audit: write markdown: %w", err)
	}

	jsonBytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("audit: marshal json: %w", err)
	}
	if err := os.WriteFile(jsonPath, jsonBytes, 0o600); err != nil {
		return "", "", fmt.Errorf("audit: write json: %w", err)
	}

	log.Info("wrote audit artifacts for run %s: %s", r.RunID, mdPath)

	if l.st != nil {
		row := store.CouncilRunRow{
			ID:                r.RunID,
			StoryID:           r.StoryID,
			BaseRef:           r.BaseRef,
			HeadRef:           r.HeadRef,
			Engine:            r.Engine,
			AggregateVerdict:  r.AggregateVerdict,
			CitationRate:      r.CitationRate,
			HallucinationRate: r.HallucinationRate,
			StartedAt:         r.StartedAt.Unix(),
			FinishedAt:        r.FinishedAt.Unix(),
			AuditPath:         mdPath,
		}
		if err := l.st.InsertCouncilRun(row); err != nil {
			log.Warn("failed to persist council_runs row for %s: %v", r.RunID, err)
		}
	}

	return mdPath, jsonPath, nil
}

func safeName(s string) string {
	replacer := strings.NewReplacer("/", "-", " ", "-", ":", "-")
	return replacer.Replace(s)
}

// RenderMarkdown produces the human-readable artifact.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Council Run %s\n\n", r.RunID)
	if r.StoryID != "" {
		fmt.Fprintf(&sb, "- **Story:** %s\n", r.StoryID)
	}
	fmt.Fprintf(&sb, "- **Base → Head:** `%s` → `%s`\n", r.BaseRef, r.HeadRef)
	fmt.Fprintf(&sb, "- **Engine:** %s\n", r.Engine)
	fmt.Fprintf(&sb, "- **Aggregate Verdict:** %s\n", r.AggregateVerdict)
	fmt.Fprintf(&sb, "- **Citation Rate:** %.2f\n", r.CitationRate)
	fmt.Fprintf(&sb, "- **Hallucination Rate:** %.2f\n", r.HallucinationRate)
	fmt.Fprintf(&sb, "- **Duration:** %s\n\n", r.Duration())

	sb.WriteString("## Role Verdicts\n\n")
	roles := append([]RoleVerdict(nil), r.RoleVerdicts...)
	sort.Slice(roles, func(i, j int) bool { return roles[i].Role < roles[j].Role })
	for _, rv := range roles {
		fmt.Fprintf(&sb, "### %s — %s\n\n", rv.Role, rv.Verdict)
		for _, f := range rv.Findings {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		sb.WriteString("\n")
	}

	if len(r.Suppressions) > 0 {
		sb.WriteString("## Exception Suppressions\n\n")
		for _, s := range r.Suppressions {
			fmt.Fprintf(&sb, "- `%s` suppressed `%s` on `%s`\n", s.ExceptionID, s.RuleMatched, s.File)
		}
	}

	return sb.String()
}
