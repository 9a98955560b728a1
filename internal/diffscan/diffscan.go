// Package diffscan computes a changeset's unified diff between two file
// revisions, used by the Preflight Orchestrator for the changed-file list
// it hands to linters and by the Council Scheduler to chunk review work by file/hunk boundary.
package diffscan

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const defaultContextLines = 3

// LineKind is one diff line's role within a hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// Line is a single rendered diff line.
type Line struct {
	OldLineNum int // 0 when the line does not exist on the old side
	NewLineNum int // 0 when the line does not exist on the new side
	Content    string
	Kind       LineKind
}

// Hunk is a contiguous block of changes plus surrounding context.
type Hunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []Line
}

// FileDiff is the changes to a single file.
type FileDiff struct {
	OldPath, NewPath   string
	Hunks              []Hunk
	IsNew, IsDeleted   bool
}

// Changeset is every file touched between a base and head revision.
type Changeset struct {
	BaseRef, HeadRef string
	Files            []FileDiff
}

// ChangedFiles returns the new-side path of every file in the changeset
// (the old-side path for a deleted file), the shape the Journey Index's Affected() query expects.
func (c *Changeset) ChangedFiles() []string {
	out := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		if f.IsDeleted {
			out = append(out, f.OldPath)
			continue
		}
		out = append(out, f.NewPath)
	}
	return out
}

// Engine computes file diffs with the same dmp settings and identical-pair
// caching pattern used across the pack for large repeated diffs.
type Engine struct {
	dmp   *diffmatchpatch.DiffMatchPatch
	cache sync.Map
}

// NewEngine builds an Engine with semantic diff timeout disabled, trading
// bounded latency for byte-exact hunks (every run is a single CLI
// invocation, not a long-lived server, so unbounded diff time is
// acceptable for the file sizes a governance review deals with).
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

type cacheKey struct{ oldHash, newHash uint64 }

// ComputeFileDiff produces the FileDiff between oldContent and newContent,
// grouped into hunks with defaultContextLines lines of context.
func (e *Engine) ComputeFileDiff(oldPath, newPath, oldContent, newContent string) FileDiff {
	fd := FileDiff{OldPath: oldPath, NewPath: newPath}
	if oldContent == "" && newContent != "" {
		fd.IsNew = true
	}
	if newContent == "" && oldContent != "" {
		fd.IsDeleted = true
	}

	key := cacheKey{oldHash: fnv(oldContent), newHash: fnv(newContent)}
	if cached, ok := e.cache.Load(key); ok {
		if hunks, ok := cached.([]Hunk); ok {
			fd.Hunks = hunks
			return fd
		}
	}

	a, b, lineArray := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	hunks := groupIntoHunks(diffsToOperations(diffs), defaultContextLines)
	e.cache.Store(key, hunks)
	fd.Hunks = hunks
	return fd
}

func fnv(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

type operation struct {
	kind       LineKind
	oldLineNum int
	newLineNum int
	content    string
}

func diffsToOperations(diffs []diffmatchpatch.Diff) []operation {
	var ops []operation
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, operation{kind: LineContext, oldLineNum: oldLine, newLineNum: newLine, content: line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, operation{kind: LineRemoved, oldLineNum: oldLine, content: line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, operation{kind: LineAdded, newLineNum: newLine, content: line})
				newLine++
			}
		}
	}
	return ops
}

// groupIntoHunks clusters changed lines with contextLines of surrounding
// unchanged lines into hunks, merging hunks whose context windows overlap.
func groupIntoHunks(ops []operation, contextLines int) []Hunk {
	var changedIdx []int
	for i, op := range ops {
		if op.kind != LineContext {
			changedIdx = append(changedIdx, i)
		}
	}
	if len(changedIdx) == 0 {
		return nil
	}

	type span struct{ start, end int }
	var spans []span
	for _, idx := range changedIdx {
		start := idx - contextLines
		if start < 0 {
			start = 0
		}
		end := idx + contextLines
		if end >= len(ops) {
			end = len(ops) - 1
		}
		if len(spans) > 0 && start <= spans[len(spans)-1].end+1 {
			if end > spans[len(spans)-1].end {
				spans[len(spans)-1].end = end
			}
			continue
		}
		spans = append(spans, span{start, end})
	}

	var hunks []Hunk
	for _, sp := range spans {
		var lines []Line
		var oldStart, newStart int
		oldCount, newCount := 0, 0
		for i := sp.start; i <= sp.end; i++ {
			op := ops[i]
			if oldStart == 0 && op.oldLineNum != 0 {
				oldStart = op.oldLineNum
			}
			if newStart == 0 && op.newLineNum != 0 {
				newStart = op.newLineNum
			}
			if op.oldLineNum != 0 {
				oldCount++
			}
			if op.newLineNum != 0 {
				newCount++
			}
			kind := LineContext
			switch op.kind {
			case LineAdded:
				kind = LineAdded
			case LineRemoved:
				kind = LineRemoved
			}
			lines = append(lines, Line{OldLineNum: op.oldLineNum, NewLineNum: op.newLineNum, Content: op.content, Kind: kind})
		}
		hunks = append(hunks, Hunk{OldStart: oldStart, OldCount: oldCount, NewStart: newStart, NewCount: newCount, Lines: lines})
	}
	return hunks
}

// RenderUnified renders a FileDiff in standard unified-diff text form, the
// format the Council's chunker consumes.
func RenderUnified(fd FileDiff) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", fd.OldPath, fd.NewPath)
	for _, h := range fd.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Kind {
			case LineAdded:
				sb.WriteString("+" + l.Content + "\n")
			case LineRemoved:
				sb.WriteString("-" + l.Content + "\n")
			default:
				sb.WriteString(" " + l.Content + "\n")
			}
		}
	}
	return sb.String()
}
