// Package preflight implements the Preflight Orchestrator (component J):
// the single entrypoint that sequences config/secret/exception loading,
// changeset diffing, external linters, ADR lint, journey impact, and the
// Council Scheduler into one exit code, with an audit artifact recording
// what ran.
package preflight

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"govctl/internal/council"
)

// externalLinter describes one shelled-out tool and how to turn its
// stdout into council.Finding values.
type externalLinter struct {
	Name   string
	Args   func(files []string) []string
	Parser func(name string, output []byte) []council.Finding
}

// defaultLinters mirrors the three process-adapter linters named in
// SPEC_FULL.md's domain stack: ruff (Python), eslint (JS/TS), and
// shellcheck (shell scripts), each invoked only when its binary is on
// PATH and only against files of its language.
var defaultLinters = []externalLinter{
	{Name: "ruff", Args: func(files []string) []string {
		return append([]string{"check", "--output-format", "concise"}, filterExt(files, ".py")...)
	}, Parser: parseRuffOutput},
	{Name: "eslint", Args: func(files []string) []string {
		return append([]string{"--format", "unix"}, filterExt(files, ".js", ".jsx", ".ts", ".tsx")...)
	}, Parser: parseESLintOutput},
	{Name: "shellcheck", Args: func(files []string) []string {
		return filterExt(files, ".sh", ".bash")
	}, Parser: parseShellcheckOutput},
}

const linterTimeout = 60 * time.Second

func filterExt(files []string, exts ...string) []string {
	var out []string
	for _, f := range files {
		for _, ext := range exts {
			if strings.HasSuffix(f, ext) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// runLinters executes every configured linter whose binary is available
// and whose file filter matched at least one changed file; a linter whose
// binary is not on PATH is skipped without a finding. Output lines a
// parser does not recognize are skipped; only a parser panic degrades to a
// single warn finding naming the tool, rather than aborting the run.
func runLinters(ctx context.Context, repoRoot string, changedFiles []string) []council.Finding {
	var findings []council.Finding
	for _, l := range defaultLinters {
		args := l.Args(changedFiles)
		if len(args) == 0 {
			continue
		}
		path, err := exec.LookPath(l.Name)
		if err != nil {
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, linterTimeout)
		cmd := exec.CommandContext(runCtx, path, args...)
		cmd.Dir = repoRoot
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		runErr := cmd.Run()
		cancel()

		// Nonzero exit is the normal "found issues" signal for these
		// tools; only a failed run that wrote nothing to stdout and
		// something to stderr degrades to a single warn finding.
		if runErr != nil && stdout.Len() == 0 && stderr.Len() > 0 {
			findings = append(findings, council.Finding{
				Role: "preflight", Severity: council.SeverityWarn,
				Message: fmt.Sprintf("%s failed to run: %s", l.Name, strings.TrimSpace(stderr.String())),
			})
			continue
		}

		parsed := safeParse(l.Name, l.Parser, stdout.Bytes())
		findings = append(findings, parsed...)
	}
	return findings
}

// safeParse isolates a single linter's output parser: if the parser
// panics on unexpected output shape, the run continues with a single
// warn finding instead of crashing the whole preflight pass.
func safeParse(name string, parser func(string, []byte) []council.Finding, output []byte) (findings []council.Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = []council.Finding{{
				Role: "preflight", Severity: council.SeverityWarn,
				Message: fmt.Sprintf("%s produced output preflight could not parse: %v", name, r),
			}}
		}
	}()
	return parser(name, output)
}

var ruffLine = regexp.MustCompile(`^(.+):(\d+):(\d+):\s*(\S+)\s*(.*)$`)

func parseRuffOutput(name string, output []byte) []council.Finding {
	var findings []council.Finding
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		m := ruffLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[2])
		findings = append(findings, council.Finding{
			Role: "preflight", Severity: council.SeverityWarn, File: m[1], Line: line,
			Message: fmt.Sprintf("ruff %s: %s", m[4], m[5]),
		})
	}
	return findings
}

var unixLine = regexp.MustCompile(`^(.+):(\d+):(\d+):\s*(.*?)\s*\[([^\]]+)\]$`)

func parseESLintOutput(name string, output []byte) []council.Finding {
	var findings []council.Finding
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		m := unixLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[2])
		sev := council.SeverityWarn
		if strings.Contains(m[5], "error") {
			sev = council.SeverityBlock
		}
		findings = append(findings, council.Finding{
			Role: "preflight", Severity: sev, File: m[1], Line: line,
			Message: fmt.Sprintf("eslint %s: %s", m[5], m[4]),
		})
	}
	return findings
}

var shellcheckLine = regexp.MustCompile(`^In (.+) line (\d+):`)

func parseShellcheckOutput(name string, output []byte) []council.Finding {
	var findings []council.Finding
	sc := bufio.NewScanner(bytes.NewReader(output))
	var file string
	var line int
	for sc.Scan() {
		text := sc.Text()
		if m := shellcheckLine.FindStringSubmatch(text); m != nil {
			file = m[1]
			line, _ = strconv.Atoi(m[2])
			continue
		}
		if file != "" && strings.Contains(text, "SC") {
			findings = append(findings, council.Finding{
				Role: "preflight", Severity: council.SeverityWarn, File: file, Line: line,
				Message: strings.TrimSpace(text),
			})
			file = ""
		}
	}
	return findings
}
