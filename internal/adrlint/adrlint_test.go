package adrlint

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeADR(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestParseFileExtractsEnforcementRules(t *testing.T) {
	dir := t.TempDir()
	writeADR(t, dir, "ADR-001.md", `id: ADR-001
status: accepted

# No fmt.Println in production code

`+"```enforcement\nrules:\n  - type: regex\n    pattern: 'fmt\\.Println'\n    scope_glob: '*.go'\n    violation_message: do not use fmt.Println\n```\n")

	adr, err := ParseFile(filepath.Join(dir, "ADR-001.md"))
	require.NoError(t, err)
	require.Equal(t, "ADR-001", adr.ID)
	require.Equal(t, StatusAccepted, adr.Status)
	require.Len(t, adr.Enforcement, 1)
	require.Equal(t, RuleTypeRegex, adr.Enforcement[0].Type)
}

func TestParseFileMalformedEnforcementIsolatesAsConfigError(t *testing.T) {
	dir := t.TempDir()
	writeADR(t, dir, "ADR-002.md", "id: ADR-002\nstatus: accepted\n```enforcement\n  not: [valid yaml\n```\n")

	_, err := ParseFile(filepath.Join(dir, "ADR-002.md"))
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "ADR-002", cfgErr.ADRID)
}

func TestLoadAllIgnoresDraftADRs(t *testing.T) {
	dir := t.TempDir()
	writeADR(t, dir, "ADR-010.md", "id: ADR-010\nstatus: draft\n```enforcement\nrules:\n  - type: regex\n    pattern: 'TODO'\n    scope_glob: '*.go'\n    violation_message: no TODOs\n```\n")
	writeADR(t, dir, "ADR-011.md", "id: ADR-011\nstatus: accepted\n```enforcement\nrules:\n  - type: regex\n    pattern: 'TODO'\n    scope_glob: '*.go'\n    violation_message: no TODOs\n```\n")

	rules, adrs, errs := LoadAll(dir)
	require.Empty(t, errs)
	require.Len(t, adrs, 1)
	require.Len(t, rules, 1)
	require.Equal(t, "ADR-011", rules[0].ADRID)
}

func TestEngineRunRegexRuleProducesBlockFinding(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n"), 0o644))

	eng := NewEngine(dir)
	rule := LintRule{ADRID: "ADR-001", Type: RuleTypeRegex, Pattern: `fmt\.Println`, ScopeGlob: "*.go", ViolationMessage: "no Println", TimeoutMS: 1000}

	findings, errs := eng.Run(context.Background(), []LintRule{rule})
	require.Empty(t, errs)
	require.Len(t, findings, 1)
	require.Equal(t, SeverityBlock, findings[0].Severity)
	require.Equal(t, 4, findings[0].Line)
	require.Contains(t, findings[0].References, "ADR-001")
}

func TestEngineRejectsScopeOutsideRoot(t *testing.T) {
	dir := t.TempDir()
	eng := NewEngine(dir)
	rule := LintRule{ADRID: "ADR-001", Type: RuleTypeRegex, Pattern: "x", ScopeGlob: "../../*.go", ViolationMessage: "m", TimeoutMS: 1000}

	_, errs := eng.Run(context.Background(), []LintRule{rule})
	require.Len(t, errs, 1)
}

func TestEngineRunASTRuleMatchesNodeType(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n\nfunc helper() {}\n"), 0o644))

	eng := NewEngine(dir)
	rule := LintRule{ADRID: "ADR-005", Type: RuleTypeAST, Pattern: "function_declaration", ScopeGlob: "*.go", ViolationMessage: "no bare functions", TimeoutMS: 2000}

	findings, errs := eng.Run(context.Background(), []LintRule{rule})
	require.Empty(t, errs)
	require.Len(t, findings, 2)
}

func TestScanFileWithTimeoutReturnsOnExpiredContextWithoutWaitingForScan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	content := strings.Repeat("line of text\n", 100000)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	re := regexp.MustCompile("line")
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := scanFileWithTimeout(ctx, path, re)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunDoesNotStallSubsequentRulesWhenOneRuleTimesOut(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slow.go"), []byte(strings.Repeat("x\n", 50000)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fast.go"), []byte("package main\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n"), 0o644))

	eng := NewEngine(dir)
	rules := []LintRule{
		{ADRID: "ADR-SLOW", Type: RuleTypeRegex, Pattern: "x", ScopeGlob: "slow.go", ViolationMessage: "slow", TimeoutMS: 0},
		{ADRID: "ADR-001", Type: RuleTypeRegex, Pattern: `fmt\.Println`, ScopeGlob: "fast.go", ViolationMessage: "no Println", TimeoutMS: 1000},
	}

	start := time.Now()
	findings, errs := eng.Run(context.Background(), rules)
	elapsed := time.Since(start)

	require.Empty(t, errs)
	require.Less(t, elapsed, 500*time.Millisecond)

	var fastFindings []Finding
	for _, f := range findings {
		if f.References[0] == "ADR-001" {
			fastFindings = append(fastFindings, f)
		}
	}
	require.Len(t, fastFindings, 1)
}

func TestFormatFindingRuffStyle(t *testing.T) {
	f := Finding{File: "a/b.go", Line: 10, Col: 3, Message: "bad thing"}
	require.Equal(t, "a/b.go:10:3: bad thing", FormatFinding(f))
}
