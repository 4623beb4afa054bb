// ABOUTME: Reranker contract shared by cross-encoder and late-interaction scorers
// ABOUTME: Scores candidate passages against a query, higher is more relevant
package rerank

import (
	"context"
	"errors"
)

// ErrUnavailable wraps failures of the reranking backend. Callers fall back
// to dense-only ordering when they see it.
var ErrUnavailable = errors.New("reranker unavailable")

// Reranker assigns one relevance score per candidate, preserving input
// order.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}
