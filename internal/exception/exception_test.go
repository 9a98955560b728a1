package exception

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeExc(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadFiltersToAccepted(t *testing.T) {
	dir := t.TempDir()
	writeExc(t, dir, "exc1.yaml", "id: EXC-001\nstatus: accepted\nrule_reference: ADR-025\naffected_files_glob: [\"commands/utils.py\"]\njustification: legacy\n")
	writeExc(t, dir, "exc2.yaml", "id: EXC-002\nstatus: retired\nrule_reference: ADR-026\naffected_files_glob: [\"x.py\"]\njustification: old\n")

	r, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, r.records, 1)
	require.Equal(t, "EXC-001", r.records[0].ID)
}

func TestSuppressMatchesRuleAndFile(t *testing.T) {
	dir := t.TempDir()
	writeExc(t, dir, "exc1.yaml", "id: EXC-001\nstatus: accepted\nrule_reference: ADR-025\naffected_files_glob: [\"commands/utils.py\"]\njustification: legacy\n")
	r, err := Load(dir)
	require.NoError(t, err)

	suppressed := r.Suppress(Finding{References: []string{"ADR-025"}, File: "commands/utils.py"})
	require.True(t, suppressed)
	require.Len(t, r.Events(), 1)
	require.Equal(t, "EXC-001", r.Events()[0].ExceptionID)
}

func TestSuppressRequiresBothRuleAndFileMatch(t *testing.T) {
	dir := t.TempDir()
	writeExc(t, dir, "exc1.yaml", "id: EXC-001\nstatus: accepted\nrule_reference: ADR-025\naffected_files_glob: [\"commands/utils.py\"]\njustification: legacy\n")
	r, err := Load(dir)
	require.NoError(t, err)

	require.False(t, r.Suppress(Finding{References: []string{"ADR-099"}, File: "commands/utils.py"}))
	require.False(t, r.Suppress(Finding{References: []string{"ADR-025"}, File: "other.py"}))
}

func TestLoadMissingDirReturnsEmptyResolver(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	require.False(t, r.Suppress(Finding{References: []string{"ADR-001"}, File: "a.py"}))
}
