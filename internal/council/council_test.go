package council

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"govctl/internal/aiservice"
	"govctl/internal/diffscan"
	"govctl/internal/exception"
	"govctl/internal/tokens"
)

// TestMain verifies the semaphore-bounded parallel and adk engines never
// leak a goroutine past their WaitGroup join, across the whole package's
// test suite.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedAI is a fake aiClient that returns one canned final answer per
// call, regardless of role, so engine-parity tests can assert on shape
// rather than wiring a real model.
type scriptedAI struct {
	mu     sync.Mutex
	answer string
	calls  int
}

func (s *scriptedAI) Complete(ctx context.Context, req aiservice.Request) (aiservice.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return aiservice.Response{Text: s.answer}, nil
}

const passAnswer = "VERDICT: PASS\nFINDINGS:\nREFERENCES:\n"

const blockAnswer = "VERDICT: BLOCK\nFINDINGS:\n- [block] a.go:10: missing auth check (Source: ADR-7)\nREFERENCES: ADR-7\n"

// roleScriptedAI returns a different canned answer per reviewer role,
// picked by matching the "You are the <role> reviewer" line every
// runRole call puts in the system message, so a single fake can
// distinguish a role's own direct investigation from a delegated one.
type roleScriptedAI struct {
	mu        sync.Mutex
	byRole    map[string]string
	callCount map[string]int
}

func (s *roleScriptedAI) Complete(ctx context.Context, req aiservice.Request) (aiservice.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callCount == nil {
		s.callCount = map[string]int{}
	}
	sysMsg := req.Messages[0].Content
	for role, answer := range s.byRole {
		if strings.Contains(sysMsg, "You are the "+role+" reviewer") {
			s.callCount[role]++
			return aiservice.Response{Text: answer}, nil
		}
	}
	return aiservice.Response{Text: passAnswer}, nil
}

func testRoles() []Role {
	return []Role{
		{Name: "security", FocusArea: "auth and data handling", OtherDomains: []string{"style"}},
		{Name: "style", FocusArea: "formatting and naming"},
	}
}

func TestBuildChunksSplitsOnFileBoundary(t *testing.T) {
	eng := diffscan.NewEngine()
	cs := &diffscan.Changeset{Files: []diffscan.FileDiff{
		eng.ComputeFileDiff("a.go", "a.go", "x\n", "y\n"),
		eng.ComputeFileDiff("b.go", "b.go", "p\n", "q\n"),
	}}

	chunks := BuildChunks(cs, tokens.DefaultTokenizer, 100000, "system", 256)
	require.Len(t, chunks, 1) // small diffs comfortably merge into one chunk

	var allFiles []string
	for _, c := range chunks {
		allFiles = append(allFiles, c.Files...)
	}
	require.ElementsMatch(t, []string{"a.go", "b.go"}, allFiles)
}

func TestBuildChunksKeepsHunkIntactWhenFileExceedsBudget(t *testing.T) {
	eng := diffscan.NewEngine()
	big := ""
	for i := 0; i < 2000; i++ {
		big += "line\n"
	}
	cs := &diffscan.Changeset{Files: []diffscan.FileDiff{
		eng.ComputeFileDiff("huge.go", "huge.go", "", big),
	}}

	chunks := BuildChunks(cs, tokens.DefaultTokenizer, 50, "s", 4)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.Contains(t, c.Files, "huge.go")
	}
}

func TestDedupFindingsDropsRepeatsBySameKey(t *testing.T) {
	findings := []Finding{
		{Role: "security", File: "a.go", Line: 10, References: []string{"ADR-7"}, Message: "first"},
		{Role: "security", File: "a.go", Line: 10, References: []string{"ADR-7"}, Message: "duplicate"},
		{Role: "security", File: "b.go", Line: 1, References: []string{"ADR-7"}, Message: "distinct"},
	}
	deduped := DedupFindings(findings)
	require.Len(t, deduped, 2)
	require.Equal(t, "first", deduped[0].Message)
}

func TestFinalizeRoleDowngradesBlockOnUnresolvedCitation(t *testing.T) {
	text := "VERDICT: BLOCK\nFINDINGS:\n- [block] a.go:5: bad thing (Source: ADR-99)\nREFERENCES: ADR-1\n"
	result := finalizeRole(RoleResult{Role: "security"}, testRoles()[0], text)
	require.Equal(t, VerdictNeedsInfo, result.Verdict)
	require.Empty(t, result.Findings) // the only finding cited an unknown reference
}

func TestFinalizeRoleKeepsBlockWithValidCitation(t *testing.T) {
	result := finalizeRole(RoleResult{Role: "security"}, testRoles()[0], blockAnswer)
	require.Equal(t, VerdictBlock, result.Verdict)
	require.Len(t, result.Findings, 1)
	require.Equal(t, "a.go", result.Findings[0].File)
	require.Equal(t, 10, result.Findings[0].Line)
}

func TestFinalizeRoleDropsFindingWithNoSourceTagAtAll(t *testing.T) {
	text := "VERDICT: BLOCK\nFINDINGS:\n- [block] a.go:5: bad thing with no citation\nREFERENCES:\n"
	result := finalizeRole(RoleResult{Role: "security"}, testRoles()[0], text)
	require.Empty(t, result.Findings)
	require.Equal(t, VerdictNeedsInfo, result.Verdict)
	require.Zero(t, result.TotalReferences)
}

func TestFinalizeRoleDropsUncitedFindingButKeepsBlockWhenAnotherFindingIsCited(t *testing.T) {
	text := "VERDICT: BLOCK\nFINDINGS:\n" +
		"- [block] a.go:5: bad thing with no citation\n" +
		"- [block] b.go:9: cited bad thing (Source: ADR-7)\n" +
		"REFERENCES: ADR-7\n"
	result := finalizeRole(RoleResult{Role: "security"}, testRoles()[0], text)
	require.Len(t, result.Findings, 1)
	require.Equal(t, "b.go", result.Findings[0].File)
	require.Equal(t, VerdictBlock, result.Verdict)
}

func TestAggregateBlocksWhenAnyRoleBlocks(t *testing.T) {
	roles := []RoleResult{
		{Role: "security", Verdict: VerdictBlock, Findings: []Finding{{Role: "security", Severity: SeverityBlock, File: "a.go", Line: 10}}},
		{Role: "style", Verdict: VerdictPass},
	}
	result := Aggregate(roles, nil)
	require.Equal(t, VerdictBlock, result.AggregateVerdict)
	require.Len(t, result.Findings, 1)
}

func TestAggregateStillBlocksWithEmptyExceptionResolver(t *testing.T) {
	dir := t.TempDir()
	resolver, err := exception.Load(dir) // no EXC-*.yaml files present: empty resolver suppresses nothing
	require.NoError(t, err)

	roles := []RoleResult{
		{Role: "security", Verdict: VerdictBlock, Findings: []Finding{{Role: "security", Severity: SeverityBlock, File: "a.go", Line: 10}}},
	}
	result := Aggregate(roles, resolver)
	require.Equal(t, VerdictBlock, result.AggregateVerdict) // nothing to suppress, so still BLOCK
}

func TestAggregateComputesCitationAndHallucinationRates(t *testing.T) {
	roles := []RoleResult{
		{Role: "security", Verdict: VerdictPass, ValidReferences: 2, TotalReferences: 2},
		{Role: "style", Verdict: VerdictPass, ValidReferences: 0, TotalReferences: 1},
	}
	result := Aggregate(roles, nil)
	require.InDelta(t, 0.5, result.CitationRate, 0.01)
	require.InDelta(t, 1.0/3.0, result.HallucinationRate, 0.01)
}

func TestLegacyAndParallelEnginesProduceSameRoleSet(t *testing.T) {
	input := RunInput{Roles: testRoles(), MaxParallel: 2, MaxStepsPerRole: 3}

	legacy := NewEngine(EngineLegacy)
	legacyResults := legacy.RunRoles(context.Background(), &scriptedAI{answer: passAnswer}, nil, input, "diff text")

	parallel := NewEngine(EngineParallel)
	parallelResults := parallel.RunRoles(context.Background(), &scriptedAI{answer: passAnswer}, nil, input, "diff text")

	require.Len(t, legacyResults, 2)
	require.Len(t, parallelResults, 2)

	var legacyNames, parallelNames []string
	for _, r := range legacyResults {
		legacyNames = append(legacyNames, r.Role)
	}
	for _, r := range parallelResults {
		parallelNames = append(parallelNames, r.Role)
	}
	sort.Strings(legacyNames)
	sort.Strings(parallelNames)
	if diff := cmp.Diff(legacyNames, parallelNames); diff != "" {
		t.Fatalf("role set mismatch between legacy and parallel engines (-legacy +parallel):\n%s", diff)
	}
}

func TestADKEngineMergesDelegatedResultIntoAggregate(t *testing.T) {
	roles := []Role{
		{Name: "security", FocusArea: "auth and data handling", OtherDomains: []string{"style"}, CanDelegate: true},
		{Name: "style", FocusArea: "formatting and naming"},
	}
	ai := &roleScriptedAI{byRole: map[string]string{
		"security": passAnswer,
		"style":    blockAnswer,
	}}

	engine := NewEngine(EngineADK)
	input := RunInput{Roles: roles, MaxParallel: 2, MaxStepsPerRole: 3}
	results := engine.RunRoles(context.Background(), ai, nil, input, "diff text")

	// Both roles ran directly (2), plus one delegated re-investigation of
	// style triggered by security's CanDelegate/OtherDomains.
	require.Len(t, results, 3)

	var securityResult RoleResult
	for _, r := range results {
		if r.Role == "security" {
			securityResult = r
		}
	}
	require.Equal(t, []string{"style"}, securityResult.DelegatedTo)

	run := Aggregate(results, nil)
	require.Equal(t, VerdictBlock, run.AggregateVerdict)
	require.NotEmpty(t, run.Findings)

	// style was invoked twice (its own direct review plus the delegated
	// one), both returning the block answer.
	require.Equal(t, 2, ai.callCount["style"])
	require.Equal(t, 1, ai.callCount["security"])
}

func TestRunRoleReturnsNeedsInfoOnUnparseableAnswer(t *testing.T) {
	ai := &scriptedAI{answer: "not a structured answer"}
	result := runRole(context.Background(), ai, nil, testRoles()[0], "diff", nil, 3)
	require.Equal(t, VerdictNeedsInfo, result.Verdict)
	require.Equal(t, StateFinalized, result.State)
}

func TestConveneAggregatesAcrossChunks(t *testing.T) {
	eng := diffscan.NewEngine()
	cs := &diffscan.Changeset{Files: []diffscan.FileDiff{
		eng.ComputeFileDiff("a.go", "a.go", "x\n", "y\n"),
	}}
	input := RunInput{
		StoryID:         "STORY-1",
		Roles:           testRoles(),
		MaxParallel:     2,
		MaxStepsPerRole: 3,
	}
	ai := &scriptedAI{answer: passAnswer}

	result, err := Convene(context.Background(), input, cs, ai, nil, nil, EngineParallel, 100000)
	require.NoError(t, err)
	require.Equal(t, VerdictPass, result.AggregateVerdict)
	require.Len(t, result.Roles, 2)
}
