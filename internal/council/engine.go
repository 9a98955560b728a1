package council

import (
	"context"
	"sync"

	"govctl/internal/retrieval"
)

// EngineKind selects which convening strategy Convene uses. All three
// produce the same RunResult shape; they differ only in how role work is
// scheduled, matching spec's requirement that engines be interchangeable.
type EngineKind string

const (
	EngineLegacy   EngineKind = "legacy"
	EngineParallel EngineKind = "parallel"
	EngineADK      EngineKind = "adk"
)

// Engine runs every role in input.Roles over chunkText and returns their
// individual results, in input order.
type Engine interface {
	RunRoles(ctx context.Context, ai aiClient, tools *retrieval.Toolset, input RunInput, chunkText string) []RoleResult
}

// NewEngine constructs the Engine for kind, defaulting to the parallel
// engine (the production default per spec's council.max_parallel config)
// for any unrecognized kind.
func NewEngine(kind EngineKind) Engine {
	switch kind {
	case EngineLegacy:
		return legacyEngine{}
	case EngineADK:
		return adkEngine{maxDelegationDepth: 2}
	default:
		return parallelEngine{}
	}
}

// legacyEngine runs roles one at a time, in declaration order — the
// simplest possible scheduler, useful as a deterministic baseline and for
// providers/tests that can't tolerate concurrent calls.
type legacyEngine struct{}

func (legacyEngine) RunRoles(ctx context.Context, ai aiClient, tools *retrieval.Toolset, input RunInput, chunkText string) []RoleResult {
	results := make([]RoleResult, len(input.Roles))
	for i, role := range input.Roles {
		results[i] = runRole(ctx, ai, tools, role, chunkText, input.ReferenceIDs, input.MaxStepsPerRole)
	}
	return results
}

// parallelEngine runs up to MaxParallel roles concurrently, sharing the
// same aiClient (itself internally mutex-guarded at the Service layer per
// internal/aiservice's concurrency model) via a semaphore.
type parallelEngine struct{}

func (parallelEngine) RunRoles(ctx context.Context, ai aiClient, tools *retrieval.Toolset, input RunInput, chunkText string) []RoleResult {
	maxParallel := input.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 3
	}
	sem := make(chan struct{}, maxParallel)
	results := make([]RoleResult, len(input.Roles))

	var wg sync.WaitGroup
	for i, role := range input.Roles {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, role Role) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = runRole(ctx, ai, tools, role, chunkText, input.ReferenceIDs, input.MaxStepsPerRole)
		}(i, role)
	}
	wg.Wait()
	return results
}

// adkEngine runs the same parallel strategy as parallelEngine but allows a
// role with CanDelegate set to hand off to a named sub-role, up to
// maxDelegationDepth hops, modeling the agent-delegation pattern without
// an actual recursive agent framework dependency.
type adkEngine struct {
	maxDelegationDepth int
}

func (e adkEngine) RunRoles(ctx context.Context, ai aiClient, tools *retrieval.Toolset, input RunInput, chunkText string) []RoleResult {
	base := parallelEngine{}.RunRoles(ctx, ai, tools, input, chunkText)

	byName := make(map[string]Role, len(input.Roles))
	for _, r := range input.Roles {
		byName[r.Name] = r
	}

	for i := range base {
		role := input.Roles[i]
		if !role.CanDelegate || len(role.OtherDomains) == 0 {
			continue
		}
		names, delegated := e.delegate(ctx, ai, tools, input, chunkText, role, byName, 1)
		base[i].DelegatedTo = names
		base = append(base, delegated...)
	}
	return base
}

// delegate re-runs the role's domain exclusions as sub-reviews up to
// maxDelegationDepth hops, returning both the names of roles actually
// invoked and their full RoleResults so the delegated investigation's
// findings and verdict feed into Aggregate exactly like a directly
// scheduled role's would — a delegated BLOCK must be able to block the
// run, not just show up as a name in DelegatedTo bookkeeping.
func (e adkEngine) delegate(ctx context.Context, ai aiClient, tools *retrieval.Toolset, input RunInput, chunkText string, from Role, byName map[string]Role, depth int) ([]string, []RoleResult) {
	if depth > e.maxDelegationDepth {
		return nil, nil
	}
	var names []string
	var results []RoleResult
	for _, domain := range from.OtherDomains {
		target, ok := byName[domain]
		if !ok {
			continue
		}
		result := runRole(ctx, ai, tools, target, chunkText, input.ReferenceIDs, input.MaxStepsPerRole)
		names = append(names, target.Name)
		results = append(results, result)
	}
	return names, results
}
