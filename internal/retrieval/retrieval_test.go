package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs", "adr"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs", "journeys"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.go"), []byte("package main\n\nfunc main() {\n\tprintln(\"needle\")\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "adr", "ADR-0001.md"), []byte("# ADR-0001\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "journeys", "checkout.yaml"), []byte("id: checkout\n"), 0o644))
	return dir
}

func TestReadFileRejectsEscape(t *testing.T) {
	ts := New(newTestWorkspace(t))
	_, err := ts.ReadFile(context.Background(), "../../etc/passwd")
	require.Error(t, err)
}

func TestReadFileReturnsContents(t *testing.T) {
	ts := New(newTestWorkspace(t))
	text, err := ts.ReadFile(context.Background(), "hello.go")
	require.NoError(t, err)
	require.Contains(t, text, "needle")
}

func TestListDirectory(t *testing.T) {
	ts := New(newTestWorkspace(t))
	entries, err := ts.ListDirectory(context.Background(), ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestReadADRByID(t *testing.T) {
	ts := New(newTestWorkspace(t))
	text, err := ts.ReadADR(context.Background(), "ADR-0001")
	require.NoError(t, err)
	require.Contains(t, text, "ADR-0001")
}

func TestReadJourneyByID(t *testing.T) {
	ts := New(newTestWorkspace(t))
	text, err := ts.ReadJourney(context.Background(), "checkout")
	require.NoError(t, err)
	require.Contains(t, text, "checkout")
}

func TestSearchCodebaseFindsMatch(t *testing.T) {
	ts := New(newTestWorkspace(t))
	matches, err := ts.SearchCodebase(context.Background(), "needle", ".", "*.go", false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, 4, matches[0].LineNumber)
}

func TestSemanticLookupUnavailableWithoutCgoBuild(t *testing.T) {
	ts := New(newTestWorkspace(t))
	_, err := ts.SemanticLookup(context.Background(), "anything", 5)
	require.ErrorIs(t, err, errSemanticSearchUnavailable)
}
