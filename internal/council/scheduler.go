// Package council implements the Council Scheduler (component I): bounded-
// parallel role reviews over a diff, a per-role Reason-Act-Observe tool
// loop, and deterministic aggregation into one verdict, identical in shape
// across the legacy, parallel, and adk engines.
package council

import (
	"context"
	"time"

	"govctl/internal/diffscan"
	"govctl/internal/exception"
	"govctl/internal/retrieval"
	"govctl/internal/tokens"
)

// Convene runs one council over the changeset described by input, chunking
// the diff to fit maxInputTokens, dispatching each chunk to every role via
// the selected engine, and aggregating all role results (across all
// chunks, deduplicated) into a single RunResult.
func Convene(ctx context.Context, input RunInput, cs *diffscan.Changeset, ai aiClient, tools *retrieval.Toolset, exc *exception.Resolver, engineKind EngineKind, maxInputTokens int64) (*RunResult, error) {
	start := time.Now()

	if !input.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, input.Deadline)
		defer cancel()
	}

	systemPreamble := "council review for story " + input.StoryID
	chunks := BuildChunks(cs, tokens.DefaultTokenizer, maxInputTokens, systemPreamble, 1024)
	if len(chunks) == 0 {
		// Nothing changed relative to base: an empty but well-formed run.
		return &RunResult{AggregateVerdict: VerdictPass, Duration: time.Since(start)}, nil
	}

	engine := NewEngine(engineKind)

	perRole := make(map[string][]RoleResult, len(input.Roles))
	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		results := engine.RunRoles(ctx, ai, tools, input, chunk.DiffText)
		for _, r := range results {
			perRole[r.Role] = append(perRole[r.Role], r)
		}
	}

	merged := mergeChunkResults(input.Roles, perRole)
	result := Aggregate(merged, exc)
	result.Duration = time.Since(start)
	return &result, nil
}

// mergeChunkResults folds every chunk's per-role result into one RoleResult
// per role: findings from all chunks are concatenated then deduplicated by
// (rule_ref, file, line), verdict is the worst (BLOCK > needs-info > PASS)
// seen across chunks, and a role-level error from any chunk fails the role.
func mergeChunkResults(roles []Role, perRole map[string][]RoleResult) []RoleResult {
	out := make([]RoleResult, 0, len(roles))
	for _, role := range roles {
		chunkResults := perRole[role.Name]
		merged := RoleResult{Role: role.Name, State: StateFinalized, Verdict: VerdictPass}
		var findings []Finding
		for _, cr := range chunkResults {
			findings = append(findings, cr.Findings...)
			merged.Steps += cr.Steps
			merged.ValidReferences += cr.ValidReferences
			merged.TotalReferences += cr.TotalReferences
			if cr.Err != nil {
				merged.Err = cr.Err
				merged.State = cr.State
			}
			merged.Verdict = worstVerdict(merged.Verdict, cr.Verdict)
		}
		merged.Findings = DedupFindings(findings)
		out = append(out, merged)
	}
	return out
}

func worstVerdict(a, b VerdictKind) VerdictKind {
	rank := func(v VerdictKind) int {
		switch v {
		case VerdictBlock:
			return 0
		case VerdictNeedsInfo:
			return 1
		default:
			return 2
		}
	}
	if rank(b) < rank(a) {
		return b
	}
	return a
}
