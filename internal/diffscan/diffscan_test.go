package diffscan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeFileDiffDetectsAddedLine(t *testing.T) {
	eng := NewEngine()
	fd := eng.ComputeFileDiff("a.go", "a.go", "package a\n\nfunc F() {}\n", "package a\n\nfunc F() {}\n\nfunc G() {}\n")
	require.NotEmpty(t, fd.Hunks)

	var sawAdded bool
	for _, h := range fd.Hunks {
		for _, l := range h.Lines {
			if l.Kind == LineAdded && l.Content == "func G() {}" {
				sawAdded = true
			}
		}
	}
	require.True(t, sawAdded)
}

func TestComputeFileDiffMarksNewFile(t *testing.T) {
	eng := NewEngine()
	fd := eng.ComputeFileDiff("new.go", "new.go", "", "package a\n")
	require.True(t, fd.IsNew)
}

func TestComputeFileDiffMarksDeletedFile(t *testing.T) {
	eng := NewEngine()
	fd := eng.ComputeFileDiff("gone.go", "gone.go", "package a\n", "")
	require.True(t, fd.IsDeleted)
}

func TestRenderUnifiedProducesHunkHeaders(t *testing.T) {
	eng := NewEngine()
	fd := eng.ComputeFileDiff("a.go", "a.go", "line1\nline2\n", "line1\nline2\nline3\n")
	text := RenderUnified(fd)
	require.Contains(t, text, "--- a.go")
	require.Contains(t, text, "@@")
}

func TestChangesetChangedFiles(t *testing.T) {
	eng := NewEngine()
	cs := &Changeset{
		Files: []FileDiff{
			eng.ComputeFileDiff("a.go", "a.go", "x\n", "y\n"),
			{OldPath: "b.go", NewPath: "b.go", IsDeleted: true},
		},
	}
	require.ElementsMatch(t, []string{"a.go", "b.go"}, cs.ChangedFiles())
}
