package council

import (
	"fmt"

	"govctl/internal/diffscan"
	"govctl/internal/tokens"
)

// systemOverheadTokens approximates the fixed cost of a role's scoped
// system instruction (focus area, other-domains clause, reference ids)
// that every chunk pays regardless of diff size.
const systemOverheadTokens = 512

// Chunk is one unit of reviewable diff text handed to a role. A chunk
// never splits a hunk across its boundary: if a single hunk alone
// exceeds budget it becomes its own oversized chunk rather than being
// torn apart, since a role reviewing half a hunk has no way to cite it.
type Chunk struct {
	ID        string
	Files     []string
	DiffText  string
	Estimated int64
}

// BuildChunks splits cs into chunks that each fit within effectiveBudget
// tokens, splitting on file boundaries first and, when a single file's
// diff is still too large, on hunk boundaries within that file.
// expectedOutput is reserved against the same budget tokens.Estimate
// charges every request, keeping chunk sizing consistent with the
// Token Manager's own accounting.
func BuildChunks(cs *diffscan.Changeset, tok tokens.Tokenizer, maxInputTokens int64, systemText string, expectedOutput int) []Chunk {
	effectiveBudget := maxInputTokens - systemOverheadTokens - int64(expectedOutput)
	if effectiveBudget <= 0 {
		effectiveBudget = maxInputTokens
	}

	var chunks []Chunk
	seq := 0
	nextID := func() string {
		seq++
		return fmt.Sprintf("chunk-%03d", seq)
	}

	for _, fd := range cs.Files {
		text := diffscan.RenderUnified(fd)
		size := tokens.Estimate(tok, systemText, text, expectedOutput)
		if size <= effectiveBudget || len(fd.Hunks) <= 1 {
			chunks = append(chunks, Chunk{ID: nextID(), Files: []string{filePath(fd)}, DiffText: text, Estimated: size})
			continue
		}
		chunks = append(chunks, splitByHunk(fd, tok, systemText, expectedOutput, effectiveBudget, nextID)...)
	}
	return mergeSmallChunks(chunks, tok, systemText, expectedOutput, effectiveBudget)
}

func filePath(fd diffscan.FileDiff) string {
	if fd.IsDeleted {
		return fd.OldPath
	}
	return fd.NewPath
}

// splitByHunk breaks one file's diff into per-hunk chunks when the whole
// file doesn't fit the budget. Each hunk stays intact even if, alone, it
// still exceeds budget — oversized single-hunk chunks are accepted as-is
// since a role cannot review a partial hunk.
func splitByHunk(fd diffscan.FileDiff, tok tokens.Tokenizer, systemText string, expectedOutput int, budget int64, nextID func() string) []Chunk {
	var out []Chunk
	path := filePath(fd)
	for _, h := range fd.Hunks {
		single := diffscan.FileDiff{OldPath: fd.OldPath, NewPath: fd.NewPath, Hunks: []diffscan.Hunk{h}}
		text := diffscan.RenderUnified(single)
		size := tokens.Estimate(tok, systemText, text, expectedOutput)
		out = append(out, Chunk{ID: nextID(), Files: []string{path}, DiffText: text, Estimated: size})
	}
	_ = budget // oversized hunks are kept whole regardless of budget, see doc comment
	return out
}

// mergeSmallChunks coalesces adjacent small chunks up to the budget so a
// review run doesn't spawn one round-trip per tiny file when several
// would comfortably fit together.
func mergeSmallChunks(chunks []Chunk, tok tokens.Tokenizer, systemText string, expectedOutput int, budget int64) []Chunk {
	if len(chunks) < 2 {
		return chunks
	}
	var merged []Chunk
	cur := chunks[0]
	for _, next := range chunks[1:] {
		combinedText := cur.DiffText + next.DiffText
		combinedSize := tokens.Estimate(tok, systemText, combinedText, expectedOutput)
		if combinedSize <= budget {
			cur = Chunk{
				ID:        cur.ID,
				Files:     append(append([]string{}, cur.Files...), next.Files...),
				DiffText:  combinedText,
				Estimated: combinedSize,
			}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	merged = append(merged, cur)
	return merged
}

// dedupKey identifies a finding for cross-chunk deduplication: the same
// rule firing on the same file/line from two overlapping chunks (context
// lines can straddle a chunk boundary) counts once.
type dedupKey struct {
	ruleRef string
	file    string
	line    int
}

// DedupFindings drops repeat findings sharing (rule_ref, file, line)
// across chunks reviewed by the same role, keeping the first occurrence.
func DedupFindings(findings []Finding) []Finding {
	seen := make(map[dedupKey]bool, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		ruleRef := ""
		if len(f.References) > 0 {
			ruleRef = f.References[0]
		}
		key := dedupKey{ruleRef: ruleRef, file: f.File, line: f.Line}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}
