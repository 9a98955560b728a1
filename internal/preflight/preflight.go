package preflight

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"govctl/internal/adrlint"
	"govctl/internal/aiservice"
	"govctl/internal/audit"
	"govctl/internal/config"
	"govctl/internal/council"
	"govctl/internal/diffscan"
	"govctl/internal/exception"
	"govctl/internal/journey"
	"govctl/internal/obslog"
	"govctl/internal/retrieval"
	"govctl/internal/secretstore"
	"govctl/internal/store"
)

// ExitCode mirrors spec.md §6's preflight exit contract: 0 clean, 1 warn-
// only, 2 blocked, 3 orchestrator error (config/tooling failure, not a
// reviewed-and-rejected change).
type ExitCode int

const (
	ExitClean      ExitCode = 0
	ExitWarn       ExitCode = 1
	ExitBlocked    ExitCode = 2
	ExitOrchError  ExitCode = 3
)

// Options configures one preflight run.
type Options struct {
	WorkspaceRoot  string
	BaseRef        string
	HeadRef        string
	StoryID        string
	Roles          []council.Role
	MasterPassword string // empty: credential resolution fails for every provider with a credential_ref
}

// Result is everything a caller (CLI or --interactive loop) needs after
// one preflight pass.
type Result struct {
	Exit         ExitCode
	Run          *council.RunResult
	ADRFindings  []adrlint.Finding
	ADRErrors    []*adrlint.ConfigError
	LintFindings []council.Finding
	JourneyWarnings []string
	AuditPath    string
}

// Run sequences the full preflight pipeline: load config/secrets/
// exceptions, diff the changeset, run external linters, ADR lint, journey
// impact, convene the council, merge + suppress, and emit one audit
// artifact, in that order. Each stage's failure mode is documented inline;
// only a stage explicitly marked fatal aborts the run early.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := obslog.Get(obslog.CategoryPreflight)

	cfg, err := config.Load(opts.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("preflight: load config: %w", err)
	}

	resolve := credentialResolver(opts.WorkspaceRoot, opts.MasterPassword)

	st, err := store.Open(opts.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("preflight: open store: %w", err)
	}
	defer st.Close()

	exc, err := exception.Load(opts.WorkspaceRoot + "/.agent/exceptions")
	if err != nil {
		log.Warn("exception load failed, proceeding with no suppressions: %v", err)
		exc = nil
	}

	diffEngine := diffscan.NewEngine()
	cs, err := diffscan.BuildChangeset(ctx, opts.WorkspaceRoot, opts.BaseRef, opts.HeadRef, diffEngine)
	if err != nil {
		return nil, fmt.Errorf("preflight: build changeset: %w", err)
	}
	changedFiles := cs.ChangedFiles()

	lintFindings := runLinters(ctx, opts.WorkspaceRoot, changedFiles)

	adrRules, _, adrConfigErrs := adrlint.LoadAll(opts.WorkspaceRoot + "/docs/adr")
	adrEngine := adrlint.NewEngine(opts.WorkspaceRoot)
	adrFindings, moreErrs := adrEngine.Run(ctx, adrRules)
	adrConfigErrs = append(adrConfigErrs, moreErrs...)
	for _, ce := range adrConfigErrs {
		log.Warn("adr lint config error: %v", ce)
	}

	journeyIdx := journey.NewIndex(st, opts.WorkspaceRoot)
	if err := journeyIdx.EnsureFresh(opts.WorkspaceRoot+"/docs/journeys", false); err != nil {
		log.Warn("journey index refresh failed: %v", err)
	}
	journeyWarnings := journeyImpactWarnings(journeyIdx, changedFiles)

	svc, err := newAIService(cfg, resolve)
	if err != nil {
		return nil, fmt.Errorf("preflight: construct ai service: %w", err)
	}

	tools := retrieval.New(opts.WorkspaceRoot)

	input := council.RunInput{
		StoryID:         opts.StoryID,
		Roles:           opts.Roles,
		Mode:            council.ModeGatekeeper,
		MaxParallel:     cfg.Council.MaxParallel,
		MaxStepsPerRole: cfg.Council.MaxStepsPerRole,
		Deadline:        time.Now().Add(cfg.RunDeadline()),
	}

	runResult, err := council.Convene(ctx, input, cs, svc, tools, exc, council.EngineKind(cfg.Council.PanelEngine), defaultModelInputBudget(cfg))
	if err != nil {
		return nil, fmt.Errorf("preflight: convene council: %w", err)
	}

	mergedFindings := mergeAllFindings(runResult.Findings, lintFindings, adrFindings, exc)

	exitCode := classifyExit(runResult.AggregateVerdict, mergedFindings, journeyWarnings)

	logger, err := audit.NewLogger(opts.WorkspaceRoot, st)
	if err != nil {
		return nil, fmt.Errorf("preflight: construct audit logger: %w", err)
	}
	report := buildReport(opts, cfg, runResult, mergedFindings, exc)
	mdPath, _, err := logger.Write(report)
	if err != nil {
		log.Warn("failed to write audit artifact: %v", err)
	}

	return &Result{
		Exit:            exitCode,
		Run:             runResult,
		ADRFindings:     adrFindings,
		ADRErrors:       adrConfigErrs,
		LintFindings:    lintFindings,
		JourneyWarnings: journeyWarnings,
		AuditPath:       mdPath,
	}, nil
}

// credentialResolver backs aiservice.CredentialResolver with the secret
// vault under .agent/secrets, reading (ai_provider, <provider id>). It
// needs both a master password and an initialized vault: with either
// missing it returns an error and aiservice.New skips that provider. Once
// the vault opens, a missing record falls back to
// GOVCTL_SECRET_AI_PROVIDER_<ID> through secretstore.Vault.Get.
func credentialResolver(workspaceRoot, masterPassword string) func(providerID string) (string, error) {
	agentDir := workspaceRoot + "/.agent/secrets"
	return func(providerID string) (string, error) {
		if masterPassword == "" {
			return "", fmt.Errorf("preflight: no master password supplied for provider %s", providerID)
		}
		v, err := secretstore.Open(agentDir, masterPassword)
		if err != nil {
			return "", err
		}
		return v.Get("ai_provider", providerID)
	}
}

func journeyImpactWarnings(idx *journey.Index, changedFiles []string) []string {
	affected, err := idx.Affected(changedFiles)
	if err != nil {
		return nil
	}
	var warnings []string
	for _, a := range affected {
		warnings = append(warnings, fmt.Sprintf("journey %s touched by: %v", a.JourneyID, a.MatchedFiles))
	}
	return warnings
}

func defaultModelInputBudget(cfg *config.Config) int64 {
	for _, p := range cfg.EnabledProviders() {
		if p.ID == cfg.ActiveProvider {
			return int64(p.ContextWindow)
		}
	}
	return 32_000
}

func mergeAllFindings(councilFindings, lintFindings []council.Finding, adrFindings []adrlint.Finding, exc *exception.Resolver) []council.Finding {
	out := append([]council.Finding{}, councilFindings...)
	out = append(out, lintFindings...)
	for _, f := range adrFindings {
		cf := council.Finding{
			Role: "adr-lint", Severity: council.Severity(f.Severity), Message: f.Message,
			File: f.File, Line: f.Line, References: f.References,
		}
		if exc != nil && exc.Suppress(exception.Finding{References: cf.References, File: cf.File}) {
			continue
		}
		out = append(out, cf)
	}
	return out
}

func classifyExit(verdict council.VerdictKind, findings []council.Finding, journeyWarnings []string) ExitCode {
	if verdict == council.VerdictBlock {
		return ExitBlocked
	}
	for _, f := range findings {
		if f.Severity == council.SeverityBlock {
			return ExitBlocked
		}
	}
	if len(findings) > 0 || len(journeyWarnings) > 0 || verdict == council.VerdictNeedsInfo {
		return ExitWarn
	}
	return ExitClean
}

func buildReport(opts Options, cfg *config.Config, run *council.RunResult, findings []council.Finding, exc *exception.Resolver) *audit.Report {
	r := &audit.Report{
		RunID:             fmt.Sprintf("%s-%s", opts.StoryID, uuid.NewString()),
		StoryID:           opts.StoryID,
		BaseRef:           opts.BaseRef,
		HeadRef:           opts.HeadRef,
		Engine:            string(cfg.Council.PanelEngine),
		AggregateVerdict:  string(run.AggregateVerdict),
		CitationRate:      run.CitationRate,
		HallucinationRate: run.HallucinationRate,
		StartedAt:         time.Now().Add(-run.Duration),
		FinishedAt:        time.Now(),
	}
	byRole := map[string][]string{}
	for _, f := range findings {
		byRole[f.Role] = append(byRole[f.Role], fmt.Sprintf("[%s] %s:%d: %s", f.Severity, f.File, f.Line, f.Message))
	}
	for _, role := range run.Roles {
		r.RoleVerdicts = append(r.RoleVerdicts, audit.RoleVerdict{
			Role: role.Role, Verdict: string(role.Verdict), Findings: byRole[role.Role],
		})
	}
	if exc != nil {
		for _, ev := range exc.Events() {
			r.Suppressions = append(r.Suppressions, audit.SuppressionEntry{
				ExceptionID: ev.ExceptionID, RuleMatched: ev.RuleMatched, File: ev.File,
			})
		}
	}
	return r
}

// newAIService wraps aiservice.New so preflight depends on the package's
// public constructor, not on council's unexported client interface.
func newAIService(cfg *config.Config, resolve aiservice.CredentialResolver) (*aiservice.Service, error) {
	return aiservice.New(cfg, resolve)
}
