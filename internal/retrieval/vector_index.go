package retrieval

import (
	"context"
	"errors"
)

var errSemanticSearchUnavailable = errors.New("retrieval: semantic_lookup requires a cgo build with sqlite_vec and an embedding provider configured")

// vectorIndex is implemented by vector_index_cgo.go (build tag sqlite_vec,cgo)
// and stubbed out by vector_index_stub.go otherwise.
type vectorIndex interface {
	query(ctx context.Context, v []float32, topK int) ([]SemanticHit, error)
}
