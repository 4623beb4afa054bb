// ABOUTME: Cosine distance math shared by the scan-based backends
// ABOUTME: Distances are 1 - cosine similarity so nearest sorts ascending
package vector

import (
	"math"
	"sort"

	"github.com/omni-webui/omni-webui/internal/models"
)

// CosineDistance returns 1 - cosine similarity of a and b. Mismatched or
// zero-norm vectors score the maximum distance of 1.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 1.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1.0
	}

	return float32(1.0 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB)))
}

// ItemsToGetResult shapes a flat item slice into the single-query GetResult
// layout shared by Query and Get.
func ItemsToGetResult(items []models.VectorItem) *models.GetResult {
	ids := make([]string, len(items))
	docs := make([]string, len(items))
	metas := make([]models.Metadata, len(items))
	for i, item := range items {
		ids[i] = item.ID
		docs[i] = item.Text
		metas[i] = item.Metadata
	}
	return &models.GetResult{
		IDs:       [][]string{ids},
		Documents: [][]string{docs},
		Metadatas: [][]models.Metadata{metas},
	}
}

// ScanSearch brute-force searches items for each query vector and assembles a
// SearchResult ordered ascending by cosine distance. Backends without a
// native index (bolt, sqlite) share this path.
func ScanSearch(items []models.VectorItem, vectors [][]float32, limit int) *models.SearchResult {
	result := &models.SearchResult{
		GetResult: models.GetResult{
			IDs:       make([][]string, len(vectors)),
			Documents: make([][]string, len(vectors)),
			Metadatas: make([][]models.Metadata, len(vectors)),
		},
		Distances: make([][]float32, len(vectors)),
	}

	type scored struct {
		item     models.VectorItem
		distance float32
	}

	for qi, query := range vectors {
		ranked := make([]scored, 0, len(items))
		for _, item := range items {
			ranked = append(ranked, scored{item: item, distance: CosineDistance(query, item.Vector)})
		}
		sort.Slice(ranked, func(i, j int) bool {
			return ranked[i].distance < ranked[j].distance
		})
		if limit > 0 && len(ranked) > limit {
			ranked = ranked[:limit]
		}

		ids := make([]string, len(ranked))
		docs := make([]string, len(ranked))
		metas := make([]models.Metadata, len(ranked))
		distances := make([]float32, len(ranked))
		for i, r := range ranked {
			ids[i] = r.item.ID
			docs[i] = r.item.Text
			metas[i] = r.item.Metadata
			distances[i] = r.distance
		}
		result.IDs[qi] = ids
		result.Documents[qi] = docs
		result.Metadatas[qi] = metas
		result.Distances[qi] = distances
	}

	return result
}
