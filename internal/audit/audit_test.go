package audit

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"govctl/internal/store"
)

func sampleReport() *Report {
	start := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	return &Report{
		RunID:            "run-001",
		StoryID:          "STORY-42",
		BaseRef:          "main",
		HeadRef:          "feature/x",
		Engine:           "parallel",
		AggregateVerdict: "BLOCK",
		RoleVerdicts: []RoleVerdict{
			{Role: "security", Verdict: "BLOCK", Findings: []string{"missing auth check (Source: ADR-7)"}},
		},
		Suppressions:      []SuppressionEntry{{ExceptionID: "EXC-001", RuleMatched: "ADR-025", File: "a.py"}},
		CitationRate:      1.0,
		HallucinationRate: 0.0,
		StartedAt:         start,
		FinishedAt:        start.Add(12 * time.Second),
	}
}

func TestWriteProducesMarkdownAndJSON(t *testing.T) {
	dir := t.TempDir()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	defer st.Close()

	logger, err := NewLogger(dir, st)
	require.NoError(t, err)

	mdPath, jsonPath, err := logger.Write(sampleReport())
	require.NoError(t, err)

	mdBytes, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	require.Contains(t, string(mdBytes), "BLOCK")
	require.Contains(t, string(mdBytes), "STORY-42")

	jsonBytes, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(jsonBytes, &decoded))
	require.Equal(t, "run-001", decoded.RunID)

	runs, err := st.ListCouncilRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "run-001", runs[0].ID)
}

func TestRenderMarkdownSortsRolesAlphabetically(t *testing.T) {
	r := sampleReport()
	r.RoleVerdicts = append(r.RoleVerdicts, RoleVerdict{Role: "accessibility", Verdict: "PASS"})
	text := RenderMarkdown(r)
	require.True(t, indexOf(text, "accessibility") < indexOf(text, "security"))
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
