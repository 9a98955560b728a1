//go:build sqlite_vec && cgo

package retrieval

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	vec.Auto()
}

// sqliteVecIndex backs SemanticLookup with a sqlite-vec virtual table in
// its own sqlite3 database (semantic_index.db, relative to the working
// directory), separate from internal/store's database and connection pool.
type sqliteVecIndex struct {
	db *sql.DB
}

// newVectorIndex opens (creating if needed) the vec0 virtual table used
// for codebase chunk embeddings. Returns nil if the table cannot be
// prepared, so callers degrade to errSemanticSearchUnavailable rather than
// panicking on an optional feature.
func newVectorIndex() vectorIndex {
	db, err := sql.Open("sqlite3", "file:semantic_index.db?cache=shared")
	if err != nil {
		return nil
	}
	if _, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(embedding float[768])`); err != nil {
		db.Close()
		return nil
	}
	return &sqliteVecIndex{db: db}
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func (s *sqliteVecIndex) query(ctx context.Context, v []float32, topK int) ([]SemanticHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rowid, distance FROM vec_chunks
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance`, encodeVector(v), topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: vector query: %w", err)
	}
	defer rows.Close()

	var out []SemanticHit
	for rows.Next() {
		var rowid int64
		var dist float32
		if err := rows.Scan(&rowid, &dist); err != nil {
			return nil, err
		}
		out = append(out, SemanticHit{File: fmt.Sprintf("chunk:%d", rowid), Distance: dist})
	}
	return out, rows.Err()
}
