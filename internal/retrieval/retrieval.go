// ABOUTME: Hybrid retriever over a vector store with optional reranking
// ABOUTME: Tracks a dense-only / hybrid-ready / hybrid-degraded state machine
package retrieval

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync/atomic"

	"github.com/omni-webui/omni-webui/internal/embeddings"
	"github.com/omni-webui/omni-webui/internal/models"
	"github.com/omni-webui/omni-webui/internal/rerank"
	"github.com/omni-webui/omni-webui/internal/vector"
)

// State describes whether reranking is configured and currently working.
type State int32

const (
	// StateDenseOnly means no reranker is configured; dense scores rule.
	StateDenseOnly State = iota
	// StateHybridReady means the reranker is configured and healthy.
	StateHybridReady
	// StateHybridDegraded means the reranker failed recently; queries fall
	// back to dense scores until it succeeds again.
	StateHybridDegraded
)

func (s State) String() string {
	switch s {
	case StateDenseOnly:
		return "dense-only"
	case StateHybridReady:
		return "hybrid-ready"
	case StateHybridDegraded:
		return "hybrid-degraded"
	default:
		return "unknown"
	}
}

// overFetchFactor widens the candidate pool handed to the reranker so it
// can promote passages the dense ordering buried.
const overFetchFactor = 4

// Passage is one retrieved chunk with its relevance score. Higher scores
// are more relevant regardless of which scorer produced them.
type Passage struct {
	ID       string
	Text     string
	Metadata models.Metadata
	Score    float64
}

// Options configures a Retriever.
type Options struct {
	TopK               int
	RelevanceThreshold float64
}

// Retriever answers queries against one or more collections.
type Retriever struct {
	store     vector.Store
	encoder   embeddings.Encoder
	reranker  rerank.Reranker
	topK      int
	threshold float64
	state     atomic.Int32
}

// New creates a retriever. A nil reranker keeps the retriever dense-only
// for its lifetime.
func New(store vector.Store, encoder embeddings.Encoder, reranker rerank.Reranker, opts Options) *Retriever {
	topK := opts.TopK
	if topK <= 0 {
		topK = 3
	}
	r := &Retriever{
		store:     store,
		encoder:   encoder,
		reranker:  reranker,
		topK:      topK,
		threshold: opts.RelevanceThreshold,
	}
	if reranker != nil {
		r.state.Store(int32(StateHybridReady))
	}
	return r
}

// State returns the current retrieval state.
func (r *Retriever) State() State {
	return State(r.state.Load())
}

// QueryDoc retrieves the top passages for a query from one collection.
// A missing collection yields no results, not an error.
func (r *Retriever) QueryDoc(ctx context.Context, collection, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = r.topK
	}

	candidates, err := r.candidates(ctx, collection, query, k)
	if err != nil || candidates == nil {
		return nil, err
	}

	scored := r.score(ctx, query, candidates)
	return topK(scored, r.threshold, k), nil
}

// QueryCollections retrieves the top passages for a query across several
// collections. Candidate pools merge before the global cut, so one strong
// collection can fill the whole result.
func (r *Retriever) QueryCollections(ctx context.Context, collections []string, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = r.topK
	}

	var pools [][]Passage
	for _, collection := range collections {
		candidates, err := r.candidates(ctx, collection, query, k)
		if err != nil {
			return nil, err
		}
		if candidates == nil {
			continue
		}
		pools = append(pools, r.score(ctx, query, candidates))
	}
	return Merge(pools, r.threshold, k), nil
}

// candidates embeds the query and pulls the dense candidate pool. Reranking
// retrievers over-fetch so the reranker has room to reorder.
func (r *Retriever) candidates(ctx context.Context, collection, query string, k int) ([]Passage, error) {
	vectors, err := r.encoder.Embed(ctx, []string{embeddings.NormalizeText(query)})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	fetch := k
	if r.State() == StateHybridReady {
		fetch = k * overFetchFactor
	}

	result, err := r.store.Search(ctx, collection, vectors, fetch)
	if err != nil {
		return nil, fmt.Errorf("search in %s failed: %w", collection, err)
	}
	if result == nil || len(result.IDs) == 0 {
		return nil, nil
	}

	passages := make([]Passage, len(result.IDs[0]))
	for i := range result.IDs[0] {
		p := Passage{ID: result.IDs[0][i]}
		if i < len(result.Documents[0]) {
			p.Text = result.Documents[0][i]
		}
		if i < len(result.Metadatas[0]) {
			p.Metadata = result.Metadatas[0][i]
		}
		if len(result.Distances) > 0 && i < len(result.Distances[0]) {
			p.Score = 1 - float64(result.Distances[0][i])
		}
		passages[i] = p
	}
	return passages, nil
}

// score applies the reranker when hybrid mode is still healthy. A reranker
// failure degrades to dense scores and disables hybrid mode for the rest of
// the process lifetime.
func (r *Retriever) score(ctx context.Context, query string, passages []Passage) []Passage {
	if r.State() != StateHybridReady || len(passages) == 0 {
		return passages
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	scores, err := r.reranker.Score(ctx, query, texts)
	if err != nil || len(scores) != len(passages) {
		log.Printf("retrieval: reranker failed, disabling hybrid mode: %v", err)
		r.state.Store(int32(StateHybridDegraded))
		return passages
	}

	out := make([]Passage, len(passages))
	for i, p := range passages {
		p.Score = scores[i]
		out[i] = p
	}
	return out
}

// topK filters by threshold, sorts descending by score, and truncates.
// A zero threshold disables filtering so negative dense scores survive.
func topK(passages []Passage, threshold float64, k int) []Passage {
	kept := passages[:0:0]
	for _, p := range passages {
		if threshold > 0 && p.Score < threshold {
			continue
		}
		kept = append(kept, p)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if len(kept) > k {
		kept = kept[:k]
	}
	return kept
}
