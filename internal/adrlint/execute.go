package adrlint

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Engine runs a fixed set of rules against files under a project root.
type Engine struct {
	projectRoot string
}

// NewEngine binds an Engine to a project root; ScopeGlob resolution and
// path-containment checks are relative to it.
func NewEngine(projectRoot string) *Engine {
	return &Engine{projectRoot: filepath.Clean(projectRoot)}
}

// Run executes every rule against the files its scope_glob selects,
// returning findings plus any rule that failed to compile or whose scope
// escaped the project root (isolated as a ConfigError, never aborting the
// other rules).
func (e *Engine) Run(ctx context.Context, rules []LintRule) ([]Finding, []*ConfigError) {
	var findings []Finding
	var errs []*ConfigError

	for _, rule := range rules {
		files, err := e.resolveScope(rule.ScopeGlob)
		if err != nil {
			errs = append(errs, &ConfigError{ADRID: rule.ADRID, Err: err})
			continue
		}

		ruleFindings, err := e.runRule(ctx, rule, files)
		if err != nil {
			errs = append(errs, &ConfigError{ADRID: rule.ADRID, Err: err})
			continue
		}
		findings = append(findings, ruleFindings...)
	}
	return findings, errs
}

// resolveScope globs rule.ScopeGlob under the project root, rejecting a
// pattern that is absolute or resolves outside the root.
func (e *Engine) resolveScope(scopeGlob string) ([]string, error) {
	if scopeGlob == "" {
		return nil, fmt.Errorf("scope_glob is required")
	}
	if filepath.IsAbs(scopeGlob) {
		return nil, fmt.Errorf("scope_glob %q must not be absolute", scopeGlob)
	}
	full := filepath.Join(e.projectRoot, scopeGlob)
	if !strings.HasPrefix(filepath.Clean(full), e.projectRoot) {
		return nil, fmt.Errorf("scope_glob %q resolves outside the project root", scopeGlob)
	}
	matches, err := filepath.Glob(full)
	if err != nil {
		return nil, fmt.Errorf("invalid scope_glob %q: %w", scopeGlob, err)
	}
	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err == nil && !info.IsDir() {
			files = append(files, m)
		}
	}
	return files, nil
}

func (e *Engine) runRule(ctx context.Context, rule LintRule, files []string) ([]Finding, error) {
	switch rule.Type {
	case RuleTypeRegex, "":
		return e.runRegexRule(ctx, rule, files)
	case RuleTypeAST:
		return e.runASTRule(ctx, rule, files)
	default:
		return nil, fmt.Errorf("unknown rule type %q", rule.Type)
	}
}

func (e *Engine) runRegexRule(ctx context.Context, rule LintRule, files []string) ([]Finding, error) {
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", rule.Pattern, err)
	}

	var findings []Finding
	for _, f := range files {
		fileCtx, cancel := context.WithTimeout(ctx, time.Duration(rule.TimeoutMS)*time.Millisecond)
		matches, err := scanFileWithTimeout(fileCtx, f, re)
		cancel()
		if err != nil {
			// A single file timing out or failing to open does not
			// invalidate the rule for the rest of the scope.
			continue
		}
		for _, m := range matches {
			rel, relErr := filepath.Rel(e.projectRoot, f)
			if relErr != nil {
				rel = f
			}
			findings = append(findings, Finding{
				Severity:   SeverityBlock,
				Message:    rule.ViolationMessage,
				File:       rel,
				Line:       m.line,
				Col:        m.col,
				References: []string{rule.ADRID},
			})
		}
	}
	return findings, nil
}

type lineMatch struct {
	line, col int
}

type scanResult struct {
	matches []lineMatch
	err     error
}

// scanFileWithTimeout runs scanFileForPattern in its own goroutine and
// races it against ctx. A single line whose regex match hits catastrophic
// backtracking blocks synchronously inside that goroutine forever, but
// ctx.Done() still fires on schedule here: the caller moves on to the
// next rule immediately rather than stalling behind it. The goroutine is
// deliberately not joined on timeout — there is no way to interrupt an
// in-flight regexp call, so it is left to finish (or hang) on its own and
// its eventual result is discarded.
func scanFileWithTimeout(ctx context.Context, path string, re *regexp.Regexp) ([]lineMatch, error) {
	resCh := make(chan scanResult, 1)
	go func() {
		matches, err := scanFileForPattern(path, re)
		resCh <- scanResult{matches: matches, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-resCh:
		return r.matches, r.err
	}
}

func scanFileForPattern(path string, re *regexp.Regexp) ([]lineMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []lineMatch
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if loc := re.FindStringIndex(line); loc != nil {
			out = append(out, lineMatch{line: lineNo, col: loc[0] + 1})
		}
	}
	return out, scanner.Err()
}

// FormatFinding renders f in ruff/eslint convention: file:line:col: message.
func FormatFinding(f Finding) string {
	return fmt.Sprintf("%s:%d:%d: %s", f.File, f.Line, f.Col, f.Message)
}
