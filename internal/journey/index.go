package journey

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"govctl/internal/obslog"
	"govctl/internal/store"
)

const broadPatternWarnThreshold = 100

// Index wraps the shared store with journey-specific build/query logic.
type Index struct {
	st          *store.Store
	projectRoot string
}

// NewIndex binds an Index to the shared store and the project root every
// implementation.files entry is resolved against.
func NewIndex(st *store.Store, projectRoot string) *Index {
	return &Index{st: st, projectRoot: filepath.Clean(projectRoot)}
}

// EnsureFresh rebuilds any journey whose source mtime has advanced past
// the stored updated_at, or that has never been indexed. journeysDir is
// walked once per call; callers typically call this once per CLI
// invocation before querying.
func (idx *Index) EnsureFresh(journeysDir string, force bool) error {
	log := obslog.Get(obslog.CategoryJourney)
	journeys, _ := LoadAll(journeysDir)

	for _, j := range journeys {
		info, err := os.Stat(j.SourcePath)
		if err != nil {
			continue
		}
		mtime := info.ModTime().Unix()

		stored, known := idx.st.SourceMTime(j.ID)
		if !force && known && stored >= mtime {
			continue
		}

		patterns, err := idx.resolvePatterns(j)
		if err != nil {
			log.Warn("journey %s: %v", j.ID, err)
			continue
		}
		if err := idx.st.ReplaceJourneyPatterns(j.ID, patterns, mtime); err != nil {
			return fmt.Errorf("journey: rebuild %s: %w", j.ID, err)
		}
		log.Info("rebuilt journey index for %s (%d patterns)", j.ID, len(patterns))
	}
	return nil
}

// resolvePatterns validates each implementation.files entry resolves
// inside the project root (rejecting traversal) and warns when a single
// pattern would match more than broadPatternWarnThreshold files.
func (idx *Index) resolvePatterns(j *Journey) ([]string, error) {
	log := obslog.Get(obslog.CategoryJourney)
	var patterns []string
	for _, entry := range j.Implementation.Files {
		if filepath.IsAbs(entry) {
			return nil, fmt.Errorf("implementation.files entry %q must not be absolute", entry)
		}
		full := filepath.Join(idx.projectRoot, entry)
		if !strings.HasPrefix(filepath.Clean(full), idx.projectRoot) {
			return nil, fmt.Errorf("implementation.files entry %q resolves outside the project root", entry)
		}

		if matches, err := filepath.Glob(full); err == nil && len(matches) > broadPatternWarnThreshold {
			log.Warn("journey %s: pattern %q matches %d files (>%d), consider narrowing scope", j.ID, entry, len(matches), broadPatternWarnThreshold)
		}
		patterns = append(patterns, entry)
	}
	return patterns, nil
}

// AffectedResult is one journey's intersection with a queried changeset.
type AffectedResult struct {
	JourneyID    string
	MatchedFiles []string
}

// Affected returns every journey whose indexed patterns intersect
// changedFiles, deduplicated by journey id. Matching tries a glob match
// first and falls back to an exact filename match, per §4.8.
func (idx *Index) Affected(changedFiles []string) ([]AffectedResult, error) {
	rows, err := idx.st.AllPatterns()
	if err != nil {
		return nil, fmt.Errorf("journey: query index: %w", err)
	}

	matchedByJourney := make(map[string]map[string]bool)
	for _, row := range rows {
		for _, f := range changedFiles {
			if patternMatches(row.Pattern, f) {
				if matchedByJourney[row.JourneyID] == nil {
					matchedByJourney[row.JourneyID] = make(map[string]bool)
				}
				matchedByJourney[row.JourneyID][f] = true
			}
		}
	}

	var out []AffectedResult
	for journeyID, files := range matchedByJourney {
		matched := make([]string, 0, len(files))
		for f := range files {
			matched = append(matched, f)
		}
		out = append(out, AffectedResult{JourneyID: journeyID, MatchedFiles: matched})
	}
	return out, nil
}

func patternMatches(pattern, file string) bool {
	if ok, err := filepath.Match(pattern, file); err == nil && ok {
		return true
	}
	if ok, err := filepath.Match(pattern, filepath.Base(file)); err == nil && ok {
		return true
	}
	return pattern == file || filepath.Base(pattern) == filepath.Base(file)
}
