// ABOUTME: Merges per-collection candidate pools into one ranked result
// ABOUTME: The global cut happens after the union, never per collection
package retrieval

import "sort"

// Merge unions candidate pools, dedupes by passage id, filters by the
// relevance threshold, and returns the global top k by score. Because pools
// arrive untruncated, a single strong collection can dominate the result.
func Merge(pools [][]Passage, threshold float64, k int) []Passage {
	seen := make(map[string]struct{})
	var union []Passage
	for _, pool := range pools {
		for _, p := range pool {
			if threshold > 0 && p.Score < threshold {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			union = append(union, p)
		}
	}

	sort.SliceStable(union, func(i, j int) bool {
		return union[i].Score > union[j].Score
	})
	if len(union) > k {
		union = union[:k]
	}
	return union
}
