package preflight

import (
	"testing"

	"github.com/stretchr/testify/require"

	"govctl/internal/council"
)

func TestClassifyExitCleanWhenNothingFound(t *testing.T) {
	require.Equal(t, ExitClean, classifyExit(council.VerdictPass, nil, nil))
}

func TestClassifyExitWarnOnJourneyWarningAlone(t *testing.T) {
	require.Equal(t, ExitWarn, classifyExit(council.VerdictPass, nil, []string{"journey JRN-1 touched by: [a.go]"}))
}

func TestClassifyExitBlockedOnAggregateBlock(t *testing.T) {
	require.Equal(t, ExitBlocked, classifyExit(council.VerdictBlock, nil, nil))
}

func TestClassifyExitBlockedOnBlockSeverityFinding(t *testing.T) {
	findings := []council.Finding{{Severity: council.SeverityBlock, File: "a.go", Line: 1}}
	require.Equal(t, ExitBlocked, classifyExit(council.VerdictPass, findings, nil))
}

func TestParseRuffOutputExtractsFileLineAndRule(t *testing.T) {
	output := []byte("src/app.py:12:5: F401 'os' imported but unused\n")
	findings := parseRuffOutput("ruff", output)
	require.Len(t, findings, 1)
	require.Equal(t, "src/app.py", findings[0].File)
	require.Equal(t, 12, findings[0].Line)
}

func TestParseESLintOutputMarksErrorsAsBlock(t *testing.T) {
	output := []byte("src/app.js:3:1: Missing semicolon [error eqeqeq]\n")
	findings := parseESLintOutput("eslint", output)
	require.Len(t, findings, 1)
	require.Equal(t, council.SeverityBlock, findings[0].Severity)
}

func TestSafeParsePanicDegradesToWarnFinding(t *testing.T) {
	panicky := func(name string, output []byte) []council.Finding {
		panic("unexpected shape")
	}
	findings := safeParse("mytool", panicky, []byte("whatever"))
	require.Len(t, findings, 1)
	require.Equal(t, council.SeverityWarn, findings[0].Severity)
}

func TestFilterExtOnlyKeepsMatchingSuffixes(t *testing.T) {
	files := []string{"a.py", "b.go", "c.py"}
	require.ElementsMatch(t, []string{"a.py", "c.py"}, filterExt(files, ".py"))
}
