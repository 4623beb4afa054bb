// ABOUTME: Late-interaction reranker using MaxSim over token embeddings
// ABOUTME: Raw scores are softmaxed into a distribution across candidates
package rerank

import (
	"context"
	"fmt"
	"math"
)

// TokenEncoder produces one embedding row per token of the text. All rows
// of one call share the same width.
type TokenEncoder interface {
	EmbedTokens(ctx context.Context, text string) ([][]float32, error)
}

// LateInteraction scores candidates with the MaxSim operator: for every
// query token take the best-matching document token, then sum those maxima.
// Scores are normalized with softmax so they form a distribution over the
// candidate set.
type LateInteraction struct {
	encoder TokenEncoder
}

// NewLateInteraction creates a MaxSim reranker over the given token encoder.
func NewLateInteraction(encoder TokenEncoder) *LateInteraction {
	return &LateInteraction{encoder: encoder}
}

// Score returns a softmax distribution over the candidates, in input order.
func (l *LateInteraction) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	queryTokens, err := l.encoder.EmbedTokens(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query encoding failed: %v", ErrUnavailable, err)
	}
	if len(queryTokens) == 0 {
		return nil, fmt.Errorf("%w: query produced no tokens", ErrUnavailable)
	}
	dim := len(queryTokens[0])

	raw := make([]float64, len(candidates))
	for i, candidate := range candidates {
		docTokens, err := l.encoder.EmbedTokens(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %d encoding failed: %v", ErrUnavailable, i, err)
		}
		score, err := maxSim(queryTokens, docTokens, dim)
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %d: %v", ErrUnavailable, i, err)
		}
		raw[i] = score
	}
	return softmax(raw), nil
}

// maxSim computes sum over query tokens of the maximum similarity against
// any document token.
func maxSim(queryTokens, docTokens [][]float32, dim int) (float64, error) {
	if len(docTokens) == 0 {
		return 0, nil
	}
	var total float64
	for _, q := range queryTokens {
		if len(q) != dim {
			return 0, fmt.Errorf("query token width %d does not match %d", len(q), dim)
		}
		best := math.Inf(-1)
		for _, d := range docTokens {
			if len(d) != dim {
				return 0, fmt.Errorf("document token width %d does not match query width %d", len(d), dim)
			}
			var dot float64
			for k := 0; k < dim; k++ {
				dot += float64(q[k]) * float64(d[k])
			}
			if dot > best {
				best = dot
			}
		}
		total += best
	}
	return total, nil
}

// softmax turns raw scores into a distribution, shifted by the max for
// numerical stability.
func softmax(scores []float64) []float64 {
	max := math.Inf(-1)
	for _, s := range scores {
		if s > max {
			max = s
		}
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
