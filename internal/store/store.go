// Package store is the embedded key-value/relational backing store shared
// by the Journey Index (H), the Token Manager's day counters (C), and the
// Audit Logger's run history (L). It uses modernc.org/sqlite (pure Go, no
// cgo) so the governance CLI has no build-time C toolchain dependency by
// default; the optional Local Vector Index in internal/retrieval layers an
// additional cgo-gated sqlite-vec extension on top of the same driver
// family when built with the sqlite_vec build tag.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"govctl/internal/obslog"
)

// Store wraps a single sqlite database file with the governance core's
// schema. Reads are lock-free after Open (sql.DB pools its own
// connections); writers to the journey index take writeMu, matching
// spec.md §5's "rebuild acquires an exclusive writer lock".
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS journey_index (
	pattern    TEXT NOT NULL,
	journey_id TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (pattern, journey_id)
);

CREATE TABLE IF NOT EXISTS journey_sources (
	journey_id TEXT PRIMARY KEY,
	mtime      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS token_day_counters (
	day_stamp TEXT PRIMARY KEY,
	used      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS council_runs (
	id              TEXT PRIMARY KEY,
	story_id        TEXT,
	base_ref        TEXT,
	head_ref        TEXT,
	engine          TEXT,
	aggregate_verdict TEXT,
	citation_rate   REAL,
	hallucination_rate REAL,
	started_at      INTEGER,
	finished_at     INTEGER,
	audit_path      TEXT
);
`

// Open opens (creating if needed) the sqlite database at
// workspaceRoot/.agent/store.db and applies the schema migration.
func Open(workspaceRoot string) (*Store, error) {
	dir := filepath.Join(workspaceRoot, ".agent")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, "store.db")

	log := obslog.Get(obslog.CategoryStore)
	log.Info("opening store at %s", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(8)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenInMemory is used by tests that want a throwaway database.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for components that need direct SQL
// access; the optional vector index in internal/retrieval does not use it
// and opens its own database.
func (s *Store) DB() *sql.DB { return s.db }

// WithWriteLock runs fn while holding the store's single writer lock,
// used by the Journey Index's rebuild path.
func (s *Store) WithWriteLock(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}
