//go:build !(sqlite_vec && cgo)

package retrieval

// newVectorIndex returns nil on a build without the sqlite_vec cgo tag, so
// SemanticLookup reports errSemanticSearchUnavailable instead of linking an
// unavailable C extension.
func newVectorIndex() vectorIndex { return nil }
