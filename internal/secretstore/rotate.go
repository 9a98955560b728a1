package secretstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"govctl/internal/govctlerr"
	"govctl/internal/obslog"
)

// Rotate re-encrypts every secret under a new master password. It stages
// the new vault under a sibling temp directory, re-encrypts every record
// there, and only then renames the staged directory over the live one.
// Any failure before the final rename leaves the original vault
// completely untouched, per spec.md §4.1.
func Rotate(dir, oldPassword, newPassword string) error {
	log := obslog.Get(obslog.CategorySecret)

	oldVault, err := Open(dir, oldPassword)
	if err != nil {
		return err
	}
	// Force a real decrypt to surface a wrong old-password before we do
	// any destructive work.
	entries, err := oldVault.List(false)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Masked == "****" {
			return govctlerr.New(govctlerr.KindAuth, "secretstore.Rotate", ErrAuthenticationFailed)
		}
	}

	stageDir := filepath.Join(filepath.Dir(dir), ".rotate-"+randomSuffix())
	if err := os.MkdirAll(stageDir, 0o700); err != nil {
		return govctlerr.New(govctlerr.KindInternal, "secretstore.Rotate", err)
	}
	// Remove the stage directory on any early return; a successful run
	// renames it away before this runs.
	cleanupStage := true
	defer func() {
		if cleanupStage {
			_ = os.RemoveAll(stageDir)
		}
	}()

	newVault, err := Init(stageDir, newPassword, true)
	if err != nil {
		return err
	}

	for _, e := range entries {
		plain, err := oldVault.Get(e.Service, e.Key)
		if err != nil {
			return govctlerr.New(govctlerr.KindInternal, "secretstore.Rotate", fmt.Errorf("re-encrypt %s/%s: %w", e.Service, e.Key, err))
		}
		if err := newVault.Set(e.Service, e.Key, plain); err != nil {
			return govctlerr.New(govctlerr.KindInternal, "secretstore.Rotate", err)
		}
	}

	backupDir := dir + ".pre-rotate"
	_ = os.RemoveAll(backupDir)
	if err := os.Rename(dir, backupDir); err != nil {
		return govctlerr.New(govctlerr.KindInternal, "secretstore.Rotate", fmt.Errorf("stage swap: %w", err))
	}
	if err := os.Rename(stageDir, dir); err != nil {
		// Best-effort rollback: restore the original vault.
		_ = os.Rename(backupDir, dir)
		return govctlerr.New(govctlerr.KindInternal, "secretstore.Rotate", fmt.Errorf("stage swap failed, rolled back: %w", err))
	}
	_ = os.RemoveAll(backupDir)
	cleanupStage = false

	log.Info("vault rotated: %d secrets re-encrypted", len(entries))
	return nil
}

func randomSuffix() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
