package diffscan

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const gitTimeout = 30 * time.Second

// BuildChangeset shells out to git (the one external process this package
// depends on directly; everything else is pure-Go diffmatchpatch) to list
// the files that changed between baseRef and headRef, then computes an
// in-process unified diff for each so hunk boundaries are derived the
// same way regardless of the underlying git version's diff algorithm.
func BuildChangeset(ctx context.Context, repoRoot, baseRef, headRef string, eng *Engine) (*Changeset, error) {
	names, err := changedFileNames(ctx, repoRoot, baseRef, headRef)
	if err != nil {
		return nil, err
	}

	cs := &Changeset{BaseRef: baseRef, HeadRef: headRef}
	for _, name := range names {
		oldContent, _ := showFile(ctx, repoRoot, baseRef, name)
		newContent, _ := showFile(ctx, repoRoot, headRef, name)
		cs.Files = append(cs.Files, eng.ComputeFileDiff(name, name, oldContent, newContent))
	}
	return cs, nil
}

func changedFileNames(ctx context.Context, repoRoot, baseRef, headRef string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", baseRef, headRef)
	cmd.Dir = repoRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("diffscan: git diff --name-only: %w: %s", err, stderr.String())
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	var out []string
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// showFile returns a file's content at ref, or empty string if the file
// did not exist at that ref (new/deleted file), matching git show's exit
// behavior without treating it as a hard error.
func showFile(ctx context.Context, repoRoot, ref, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "show", fmt.Sprintf("%s:%s", ref, path))
	cmd.Dir = repoRoot
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", nil
	}
	return stdout.String(), nil
}
