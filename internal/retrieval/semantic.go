package retrieval

import "context"

// EmbeddingProvider turns text into a fixed-dimension vector. The Gemini
// implementation (see embeddingprovider package) wraps google.golang.org/genai;
// tests and offline runs can substitute a stub.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// SemanticHit is one result of a SemanticLookup query.
type SemanticHit struct {
	File     string
	Snippet  string
	Distance float32
}

// SemanticLookup is the optional vector search. It needs both an
// EmbeddingProvider and a non-nil index from newVectorIndex (see
// vector_index_cgo.go / vector_index_stub.go), both attached by
// WithSemanticSearch; otherwise it returns errSemanticSearchUnavailable.
// It is not among the tools the Council declares to models, and nothing
// in this module calls WithSemanticSearch.
func (t *Toolset) SemanticLookup(ctx context.Context, query string, topK int) ([]SemanticHit, error) {
	if t.vectorIndex == nil {
		return nil, errSemanticSearchUnavailable
	}
	if t.embedder == nil {
		return nil, errSemanticSearchUnavailable
	}
	vec, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return t.vectorIndex.query(ctx, vec, topK)
}

// WithSemanticSearch attaches an embedding provider and the build's vector
// index (nil on a non-cgo build) to the toolset.
func (t *Toolset) WithSemanticSearch(embedder EmbeddingProvider) *Toolset {
	t.embedder = embedder
	t.vectorIndex = newVectorIndex()
	return t
}
