// Package retrieval implements the read-only tools the Council and
// Preflight Orchestrator hand to the AI Service as tool declarations:
// read_file, search_codebase, list_directory, read_adr, and read_journey.
// Every tool is bound to a workspace root and refuses to resolve a path
// outside it.
package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	toolTimeout   = 10 * time.Second
	maxMatches    = 50
	maxReadBytes  = 1 << 20 // 1 MiB guard against accidentally cat-ing a huge binary
)

// Toolset binds every retrieval tool to one workspace root.
type Toolset struct {
	root        string
	embedder    EmbeddingProvider
	vectorIndex vectorIndex
}

// New returns a Toolset rooted at workspaceRoot. workspaceRoot must be an
// absolute, cleaned path; all tool arguments are resolved relative to it.
func New(workspaceRoot string) *Toolset {
	return &Toolset{root: filepath.Clean(workspaceRoot)}
}

// resolve joins a caller-supplied relative path to the workspace root and
// rejects any result that escapes it, lexically or (for a path that
// exists) through a symlink, the same containment check every tool in
// this package applies before touching the filesystem.
func (t *Toolset) resolve(rel string) (string, error) {
	if rel == "" {
		rel = "."
	}
	joined := filepath.Join(t.root, rel)
	cleaned := filepath.Clean(joined)
	if cleaned != t.root && !strings.HasPrefix(cleaned, t.root+string(filepath.Separator)) {
		return "", fmt.Errorf("retrieval: path %q escapes workspace root", rel)
	}
	if real, err := filepath.EvalSymlinks(cleaned); err == nil {
		root := t.root
		if r, err := filepath.EvalSymlinks(t.root); err == nil {
			root = r
		}
		if real != root && !strings.HasPrefix(real, root+string(filepath.Separator)) {
			return "", fmt.Errorf("retrieval: path %q resolves outside workspace root", rel)
		}
	}
	return cleaned, nil
}

// ReadFile returns the full contents of path, or an error if it escapes
// the workspace root or exceeds maxReadBytes.
func (t *Toolset) ReadFile(ctx context.Context, path string) (string, error) {
	_, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	abs, err := t.resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("retrieval: read_file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("retrieval: read_file: %q is a directory", path)
	}
	if info.Size() > maxReadBytes {
		return "", fmt.Errorf("retrieval: read_file: %q exceeds %d byte limit", path, maxReadBytes)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("retrieval: read_file: %w", err)
	}
	return string(data), nil
}

// DirEntry is one row of a ListDirectory result.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

// ListDirectory lists the immediate children of path (non-recursive).
func (t *Toolset) ListDirectory(ctx context.Context, path string) ([]DirEntry, error) {
	_, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	abs, err := t.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("retrieval: list_directory: %w", err)
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir(), Size: size})
	}
	return out, nil
}

// ReadADR reads one Architecture Decision Record by id, looking under
// docs/adr/<id>.md then adr/<id>.md, matching the two layouts seen across
// the example pack.
func (t *Toolset) ReadADR(ctx context.Context, id string) (string, error) {
	for _, candidate := range []string{
		filepath.Join("docs", "adr", id+".md"),
		filepath.Join("adr", id+".md"),
	} {
		text, err := t.ReadFile(ctx, candidate)
		if err == nil {
			return text, nil
		}
	}
	return "", fmt.Errorf("retrieval: read_adr: no ADR found for id %q", id)
}

// ReadJourney reads one journey YAML definition by id from
// docs/journeys/<id>.yaml or docs/journeys/<id>.yml.
func (t *Toolset) ReadJourney(ctx context.Context, id string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		text, err := t.ReadFile(ctx, filepath.Join("docs", "journeys", id+ext))
		if err == nil {
			return text, nil
		}
	}
	return "", fmt.Errorf("retrieval: read_journey: no journey found for id %q", id)
}
