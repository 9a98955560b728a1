// Package adrlint parses Architecture Decision Records and runs the
// enforcement rules embedded in accepted ones against a changeset,
// producing findings in the same shape every other component emits.
package adrlint

// Status is an ADR's lifecycle state. Only Accepted ADRs contribute rules.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusProposed   Status = "proposed"
	StatusAccepted   Status = "accepted"
	StatusSuperseded Status = "superseded"
)

// RuleType selects how LintRule.Pattern is interpreted.
type RuleType string

const (
	RuleTypeRegex RuleType = "regex"
	RuleTypeAST   RuleType = "ast"
)

// Severity mirrors the Finding severity taxonomy shared across the
// governance core.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// LintRule is one enforcement rule embedded in an ADR's fenced
// `enforcement` block.
type LintRule struct {
	ADRID            string   `yaml:"-"`
	Type             RuleType `yaml:"type"`
	Pattern          string   `yaml:"pattern"`
	ScopeGlob        string   `yaml:"scope_glob"`
	ViolationMessage string   `yaml:"violation_message"`
	TimeoutMS        int      `yaml:"timeout_ms"`
}

// ADR is a parsed Architecture Decision Record.
type ADR struct {
	ID         string
	Status     Status
	Path       string
	Enforcement []LintRule
}

// Finding is the ADR Lint Engine's output shape, matching the Finding
// type every other governance component (Council, Preflight) produces.
type Finding struct {
	Severity   Severity
	Message    string
	File       string
	Line       int
	Col        int
	References []string
}

// ConfigError marks a rule or ADR that failed to load/compile; it is
// isolated to its owning ADR and never aborts the overall lint run.
type ConfigError struct {
	ADRID string
	Err   error
}

func (e *ConfigError) Error() string {
	return "adrlint: " + e.ADRID + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }
