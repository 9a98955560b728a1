package journey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"govctl/internal/store"
)

func writeJourney(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalJourney = `schema_version: 1
id: JRN-001
title: Checkout
actor: Shopper
description: Shopper completes checkout
steps:
  - add item to cart
  - pay
implementation:
  files:
    - "checkout/*.go"
  tests:
    - "checkout/checkout_test.go"
`

func TestParseFileAcceptsValidJourney(t *testing.T) {
	dir := t.TempDir()
	path := writeJourney(t, dir, "checkout.yaml", minimalJourney)

	j, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, "JRN-001", j.ID)
	require.Equal(t, []string{"checkout/*.go"}, j.Implementation.Files)
}

func TestParseFileRejectsMissingRequiredFields(t *testing.T) {
	dir := t.TempDir()
	path := writeJourney(t, dir, "bad.yaml", "schema_version: 1\nid: JRN-002\n")

	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestParseFileRequiresTestsWhenCommitted(t *testing.T) {
	dir := t.TempDir()
	body := `schema_version: 1
id: JRN-003
title: X
actor: Y
description: Z
state: committed
steps: ["a"]
implementation:
  files: ["a.go"]
`
	path := writeJourney(t, dir, "jrn3.yaml", body)
	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestIndexRebuildAndQuery(t *testing.T) {
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	defer st.Close()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "checkout"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "checkout", "checkout.go"), []byte("package checkout\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "checkout", "checkout_test.go"), []byte("package checkout\n"), 0o644))

	journeysDir := filepath.Join(root, "journeys")
	require.NoError(t, os.MkdirAll(journeysDir, 0o755))
	writeJourney(t, journeysDir, "checkout.yaml", minimalJourney)

	idx := NewIndex(st, root)
	require.NoError(t, idx.EnsureFresh(journeysDir, false))

	affected, err := idx.Affected([]string{"checkout/checkout.go"})
	require.NoError(t, err)
	require.Len(t, affected, 1)
	require.Equal(t, "JRN-001", affected[0].JourneyID)
}

func TestIndexRejectsPathTraversal(t *testing.T) {
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	defer st.Close()

	root := t.TempDir()
	journeysDir := filepath.Join(root, "journeys")
	require.NoError(t, os.MkdirAll(journeysDir, 0o755))
	body := `schema_version: 1
id: JRN-004
title: X
actor: Y
description: Z
steps: ["a"]
implementation:
  files: ["../../etc/passwd"]
`
	writeJourney(t, journeysDir, "jrn4.yaml", body)

	idx := NewIndex(st, root)
	require.NoError(t, idx.EnsureFresh(journeysDir, false))

	affected, err := idx.Affected([]string{"etc/passwd"})
	require.NoError(t, err)
	require.Empty(t, affected)
}

func TestAffectedDeduplicatesByJourneyID(t *testing.T) {
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.ReplaceJourneyPatterns("JRN-005", []string{"a.go", "b.go"}, 1))

	idx := NewIndex(st, t.TempDir())
	affected, err := idx.Affected([]string{"a.go", "b.go"})
	require.NoError(t, err)
	require.Len(t, affected, 1)
	require.ElementsMatch(t, []string{"a.go", "b.go"}, affected[0].MatchedFiles)
}
