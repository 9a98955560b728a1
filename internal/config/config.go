// Package config loads and merges the governance core's configuration
// from a YAML file and environment variables, with environment variables
// applied on top of the file, and exposes a typed view to every other
// component. No command-line flag is merged into the loaded values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineKind selects the Council Scheduler's back-end.
type EngineKind string

const (
	EngineLegacy   EngineKind = "legacy"
	EngineParallel EngineKind = "parallel"
	EngineADK      EngineKind = "adk"
)

// ProviderConfig describes one entry in the AI Service's provider catalog.
type ProviderConfig struct {
	ID          string  `yaml:"id"`
	Endpoint    string  `yaml:"endpoint,omitempty"`
	CredentialRef string `yaml:"credential_ref,omitempty"`
	ContextWindow int   `yaml:"context_window"`
	CostPer1kIn  float64 `yaml:"cost_per_1k_in"`
	CostPer1kOut float64 `yaml:"cost_per_1k_out"`
	Enabled      bool    `yaml:"enabled"`
}

// TokenBudgetConfig mirrors the Token Budget data model from spec.md §3.
type TokenBudgetConfig struct {
	PerRequestCap  int     `yaml:"per_request_cap"`
	PerSessionCap  int     `yaml:"per_session_cap"`
	PerDayCap      int     `yaml:"per_day_cap"`
	AlertRatio     float64 `yaml:"alert_ratio"`
	HardStopRatio  float64 `yaml:"hard_stop_ratio"`
}

// CouncilConfig configures the Council Scheduler.
type CouncilConfig struct {
	PanelEngine      EngineKind `yaml:"panel_engine"`
	MaxParallel      int        `yaml:"max_parallel"`
	MaxStepsPerRole  int        `yaml:"max_steps_per_role"`
	RunDeadline      string     `yaml:"run_deadline"`
	MaxDelegationDepth int      `yaml:"max_delegation_depth"`
}

// LoggingConfig toggles the ambient file logger.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Level     string `yaml:"level"`
}

// Config is the merged, typed view exposed to every component.
type Config struct {
	WorkspaceRoot string              `yaml:"-"`
	Providers     []ProviderConfig    `yaml:"providers"`
	FallbackChain []string            `yaml:"fallback_chain"`
	ActiveProvider string             `yaml:"active_provider"`
	TokenBudget   TokenBudgetConfig   `yaml:"token_budget"`
	Council       CouncilConfig       `yaml:"council"`
	Logging       LoggingConfig       `yaml:"logging"`
	Offline       bool                `yaml:"-"`
}

// DefaultConfig returns sane defaults, mirroring the teacher's
// DefaultConfig() struct-literal convention.
func DefaultConfig() *Config {
	return &Config{
		Providers: []ProviderConfig{
			{ID: "gemini", ContextWindow: 1_000_000, CostPer1kIn: 0.00125, CostPer1kOut: 0.005, Enabled: true},
			{ID: "anthropic", ContextWindow: 200_000, CostPer1kIn: 0.003, CostPer1kOut: 0.015, Enabled: true},
			{ID: "openai", ContextWindow: 128_000, CostPer1kIn: 0.0025, CostPer1kOut: 0.01, Enabled: true},
			{ID: "ollama", Endpoint: "http://localhost:11434", ContextWindow: 32_000, Enabled: false},
		},
		FallbackChain:  []string{"gemini", "anthropic", "openai"},
		ActiveProvider: "gemini",
		TokenBudget: TokenBudgetConfig{
			PerRequestCap: 100_000,
			PerSessionCap: 1_000_000,
			PerDayCap:     10_000_000,
			AlertRatio:    0.8,
			HardStopRatio: 0.95,
		},
		Council: CouncilConfig{
			PanelEngine:        EngineParallel,
			MaxParallel:        3,
			MaxStepsPerRole:    10,
			RunDeadline:        "10m",
			MaxDelegationDepth: 2,
		},
		Logging: LoggingConfig{DebugMode: false, Level: "info"},
	}
}

// Load reads config.yaml under workspaceRoot/.agent/, falling back to
// DefaultConfig() if the file does not exist, then applies environment
// overrides. The caller (cmd/govctl) applies no flag overrides afterward;
// values change from the CLI only through `config set`, which persists
// them to the file.
func Load(workspaceRoot string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.WorkspaceRoot = workspaceRoot

	path := filepath.Join(workspaceRoot, ".agent", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.WorkspaceRoot = workspaceRoot
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes the config back to workspaceRoot/.agent/config.yaml,
// lazily creating the directory on first use.
func (c *Config) Save() error {
	dir := filepath.Join(c.WorkspaceRoot, ".agent")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")
	return os.WriteFile(path, data, 0o600)
}

// envOverride is one canonical-env-var-to-provider binding. Order matters
// only in that every present var is applied; unlike the teacher's
// precedence bug (later vars silently win), each var maps to exactly one
// provider's credential_ref and does not touch ActiveProvider — selecting
// the active provider is a config-file concern, not an env-presence one.
var envOverride = []struct {
	Env      string
	Provider string
}{
	{"GEMINI_API_KEY", "gemini"},
	{"ANTHROPIC_API_KEY", "anthropic"},
	{"OPENAI_API_KEY", "openai"},
	{"GITHUB_TOKEN", "gh"},
}

func applyEnvOverrides(cfg *Config) {
	for _, ov := range envOverride {
		if v := os.Getenv(ov.Env); v != "" {
			for i := range cfg.Providers {
				if cfg.Providers[i].ID == ov.Provider {
					cfg.Providers[i].CredentialRef = "env:" + ov.Env
					cfg.Providers[i].Enabled = true
				}
			}
		}
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		for i := range cfg.Providers {
			if cfg.Providers[i].ID == "ollama" {
				cfg.Providers[i].Endpoint = host
				cfg.Providers[i].Enabled = true
			}
		}
	}
	if v := os.Getenv("GOVCTL_DEBUG"); v == "1" || v == "true" {
		cfg.Logging.DebugMode = true
	}
}

// RunDeadline parses the configured council run deadline, defaulting to
// 10 minutes on any parse failure.
func (c *Config) RunDeadline() time.Duration {
	d, err := time.ParseDuration(c.Council.RunDeadline)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// EnabledProviders returns providers marked enabled, in catalog order.
func (c *Config) EnabledProviders() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Provider looks up a provider descriptor by id.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// AgentDir returns the repo-local config/secret root, ./.agent.
func (c *Config) AgentDir() string {
	return filepath.Join(c.WorkspaceRoot, ".agent")
}
