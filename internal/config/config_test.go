package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "gemini", cfg.ActiveProvider)
	require.Equal(t, EngineParallel, cfg.Council.PanelEngine)
	require.Equal(t, 3, cfg.Council.MaxParallel)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.WorkspaceRoot = dir
	cfg.ActiveProvider = "anthropic"
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, ".agent", "config.yaml"))
	require.NoError(t, err)

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "anthropic", loaded.ActiveProvider)
}

func TestEnvOverrideSetsCredentialRef(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	cfg, err := Load(dir)
	require.NoError(t, err)

	p, ok := cfg.Provider("anthropic")
	require.True(t, ok)
	require.Equal(t, "env:ANTHROPIC_API_KEY", p.CredentialRef)
	require.True(t, p.Enabled)
}

func TestRunDeadlineFallsBackOnInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Council.RunDeadline = "not-a-duration"
	require.Equal(t, "10m0s", cfg.RunDeadline().String())
}
