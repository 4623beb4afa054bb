// ABOUTME: Storage-level types shared by every vector store backend
// ABOUTME: Defines VectorItem, GetResult and SearchResult result shapes
package models

// VectorItem is the unit of storage in a collection. The id is opaque and
// unique within its collection; all vectors in a collection share one
// dimensionality.
type VectorItem struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Vector   []float32 `json:"vector"`
	Metadata Metadata  `json:"metadata"`
}

// GetResult holds items fetched without similarity ranking. The outer slice
// indexes queries (length 1 for filter-based fetches), the inner slice indexes
// matched items in backend order.
type GetResult struct {
	IDs       [][]string   `json:"ids"`
	Documents [][]string   `json:"documents"`
	Metadatas [][]Metadata `json:"metadatas"`
}

// SearchResult extends GetResult with per-item distances, ordered ascending
// (nearest first). Distances is nil when the backend cannot report them.
type SearchResult struct {
	GetResult
	Distances [][]float32 `json:"distances"`
}

// Empty reports whether the result carries no items at all.
func (r *GetResult) Empty() bool {
	if r == nil {
		return true
	}
	for _, ids := range r.IDs {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}
