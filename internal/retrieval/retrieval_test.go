// ABOUTME: Tests for the hybrid retriever and its degradation behavior
// ABOUTME: Runs against the embedded store with the in-process encoder
package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/omni-webui/omni-webui/internal/embeddings"
	"github.com/omni-webui/omni-webui/internal/ingest"
	"github.com/omni-webui/omni-webui/internal/models"
	"github.com/omni-webui/omni-webui/internal/rerank"
	"github.com/omni-webui/omni-webui/internal/vector"
	"github.com/omni-webui/omni-webui/internal/vector/bolt"
)

func newTestStore(t *testing.T) vector.Store {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func ingestDoc(t *testing.T, store vector.Store, encoder embeddings.Encoder, collection, name, content string) {
	t.Helper()
	splitter, err := ingest.NewCharacterSplitter(200, 20)
	if err != nil {
		t.Fatalf("Failed to create splitter: %v", err)
	}
	cfg := models.EmbeddingConfig{Engine: models.EngineLocal, Model: "hashed", BatchSize: 8}
	pipeline := ingest.New(store, encoder, splitter, cfg)
	if _, err := pipeline.Process(context.Background(), ingest.Request{
		Collection: collection,
		Name:       name,
		Content:    content,
		Mode:       ingest.ModeAdd,
	}); err != nil {
		t.Fatalf("Failed to ingest %s: %v", name, err)
	}
}

func TestQueryDocDenseOnly(t *testing.T) {
	store := newTestStore(t)
	encoder := embeddings.NewLocalEncoder(128)
	ctx := context.Background()

	ingestDoc(t, store, encoder, "animals", "fox.md", "The quick brown fox jumps over the lazy dog.")
	ingestDoc(t, store, encoder, "animals", "whale.md", "Blue whales migrate across entire oceans each year.")

	retriever := New(store, encoder, nil, Options{TopK: 3})
	if retriever.State() != StateDenseOnly {
		t.Fatalf("Expected dense-only state, got %s", retriever.State())
	}

	passages, err := retriever.QueryDoc(ctx, "animals", "quick brown fox", 2)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(passages) == 0 {
		t.Fatal("Expected results, got none")
	}
	if passages[0].Metadata.GetString(models.MetaName) != "fox.md" {
		t.Errorf("Expected fox.md to rank first, got %v", passages[0].Metadata)
	}
	for i := 1; i < len(passages); i++ {
		if passages[i].Score > passages[i-1].Score {
			t.Errorf("Expected descending scores, got %f after %f", passages[i].Score, passages[i-1].Score)
		}
	}
}

func TestQueryDocMissingCollection(t *testing.T) {
	store := newTestStore(t)
	encoder := embeddings.NewLocalEncoder(64)

	retriever := New(store, encoder, nil, Options{})
	passages, err := retriever.QueryDoc(context.Background(), "missing", "anything", 3)
	if err != nil {
		t.Fatalf("Expected nil error for missing collection, got %v", err)
	}
	if passages != nil {
		t.Errorf("Expected nil passages, got %v", passages)
	}
}

func TestQueryDocHybridReranks(t *testing.T) {
	store := newTestStore(t)
	encoder := embeddings.NewLocalEncoder(128)
	ctx := context.Background()

	ingestDoc(t, store, encoder, "docs", "fox.md", "The quick brown fox jumps over the lazy dog.")
	ingestDoc(t, store, encoder, "docs", "market.md", "Quarterly earnings beat analyst expectations again.")

	reranker := rerank.NewLateInteraction(encoder)
	retriever := New(store, encoder, reranker, Options{TopK: 2})
	if retriever.State() != StateHybridReady {
		t.Fatalf("Expected hybrid-ready state, got %s", retriever.State())
	}

	passages, err := retriever.QueryDoc(ctx, "docs", "brown fox", 2)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(passages) == 0 {
		t.Fatal("Expected results, got none")
	}
	if passages[0].Metadata.GetString(models.MetaName) != "fox.md" {
		t.Errorf("Expected fox.md to rank first after rerank, got %v", passages[0].Metadata)
	}
	if retriever.State() != StateHybridReady {
		t.Errorf("Expected hybrid-ready after success, got %s", retriever.State())
	}
}

type failingReranker struct{ calls int }

func (f *failingReranker) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestQueryDocDegradesOnRerankerFailure(t *testing.T) {
	store := newTestStore(t)
	encoder := embeddings.NewLocalEncoder(128)
	ctx := context.Background()

	ingestDoc(t, store, encoder, "docs", "fox.md", "The quick brown fox jumps over the lazy dog.")

	reranker := &failingReranker{}
	retriever := New(store, encoder, reranker, Options{TopK: 2})

	passages, err := retriever.QueryDoc(ctx, "docs", "brown fox", 2)
	if err != nil {
		t.Fatalf("Expected dense fallback, got error: %v", err)
	}
	if len(passages) == 0 {
		t.Error("Expected dense results despite reranker failure")
	}
	if retriever.State() != StateHybridDegraded {
		t.Errorf("Expected hybrid-degraded state, got %s", retriever.State())
	}
	if reranker.calls == 0 {
		t.Error("Expected reranker to be attempted")
	}
}

func TestDegradedStateDisablesHybridForSubsequentCalls(t *testing.T) {
	store := newTestStore(t)
	encoder := embeddings.NewLocalEncoder(128)
	ctx := context.Background()

	ingestDoc(t, store, encoder, "docs", "fox.md", "The quick brown fox jumps over the lazy dog.")

	reranker := &failingReranker{}
	retriever := New(store, encoder, reranker, Options{TopK: 2})

	if _, err := retriever.QueryDoc(ctx, "docs", "brown fox", 2); err != nil {
		t.Fatalf("First query failed: %v", err)
	}
	if retriever.State() != StateHybridDegraded {
		t.Fatalf("Expected hybrid-degraded state, got %s", retriever.State())
	}

	passages, err := retriever.QueryDoc(ctx, "docs", "brown fox", 2)
	if err != nil {
		t.Fatalf("Second query failed: %v", err)
	}
	if len(passages) == 0 {
		t.Error("Expected dense results from degraded retriever")
	}
	if reranker.calls != 1 {
		t.Errorf("Expected reranker disabled after failure, got %d calls", reranker.calls)
	}
	if retriever.State() != StateHybridDegraded {
		t.Errorf("Expected state to stay hybrid-degraded, got %s", retriever.State())
	}
}

func TestRelevanceThresholdFilters(t *testing.T) {
	store := newTestStore(t)
	encoder := embeddings.NewLocalEncoder(128)
	ctx := context.Background()

	ingestDoc(t, store, encoder, "docs", "fox.md", "The quick brown fox jumps over the lazy dog.")
	ingestDoc(t, store, encoder, "docs", "market.md", "Quarterly earnings beat analyst expectations again.")

	retriever := New(store, encoder, nil, Options{TopK: 10, RelevanceThreshold: 0.99})
	passages, err := retriever.QueryDoc(ctx, "docs", "completely unrelated zebra question", 10)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	for _, p := range passages {
		if p.Score < 0.99 {
			t.Errorf("Expected threshold to filter, kept score %f", p.Score)
		}
	}
}

func TestQueryCollectionsMergesGlobally(t *testing.T) {
	store := newTestStore(t)
	encoder := embeddings.NewLocalEncoder(128)
	ctx := context.Background()

	// One collection full of relevant passages, one full of noise.
	ingestDoc(t, store, encoder, "foxes", "fox1.md", "The quick brown fox jumps over the lazy dog.")
	ingestDoc(t, store, encoder, "foxes", "fox2.md", "A brown fox was spotted near the quick river crossing.")
	ingestDoc(t, store, encoder, "finance", "market.md", "Quarterly earnings beat analyst expectations again.")

	retriever := New(store, encoder, nil, Options{TopK: 2})
	passages, err := retriever.QueryCollections(ctx, []string{"foxes", "finance"}, "quick brown fox", 2)
	if err != nil {
		t.Fatalf("Failed to query collections: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("Expected 2 passages, got %d", len(passages))
	}
	// Both winners come from the relevant collection, the merge is not
	// one-per-collection.
	for i, p := range passages {
		name := p.Metadata.GetString(models.MetaName)
		if name != "fox1.md" && name != "fox2.md" {
			t.Errorf("Passage %d from wrong collection: %s", i, name)
		}
	}
}

func TestQueryCollectionsSkipsMissing(t *testing.T) {
	store := newTestStore(t)
	encoder := embeddings.NewLocalEncoder(128)
	ctx := context.Background()

	ingestDoc(t, store, encoder, "docs", "fox.md", "The quick brown fox jumps over the lazy dog.")

	retriever := New(store, encoder, nil, Options{TopK: 3})
	passages, err := retriever.QueryCollections(ctx, []string{"missing", "docs"}, "fox", 3)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(passages) == 0 {
		t.Error("Expected results from the existing collection")
	}
}

func TestMergeDedupesAndTruncates(t *testing.T) {
	pools := [][]Passage{
		{
			{ID: "a", Score: 0.9},
			{ID: "b", Score: 0.5},
		},
		{
			{ID: "a", Score: 0.9},
			{ID: "c", Score: 0.7},
			{ID: "d", Score: 0.1},
		},
	}

	merged := Merge(pools, 0.2, 3)
	if len(merged) != 3 {
		t.Fatalf("Expected 3 passages, got %d", len(merged))
	}
	wantIDs := []string{"a", "c", "b"}
	for i, want := range wantIDs {
		if merged[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, merged[i].ID)
		}
	}
}

func TestEndToEndLifecycle(t *testing.T) {
	store := newTestStore(t)
	encoder := embeddings.NewLocalEncoder(128)
	ctx := context.Background()

	ingestDoc(t, store, encoder, "notes", "fox.md", "The quick brown fox jumps over the lazy dog.")

	retriever := New(store, encoder, nil, Options{TopK: 3})
	passages, err := retriever.QueryDoc(ctx, "notes", "fox", 3)
	if err != nil || len(passages) == 0 {
		t.Fatalf("Expected results after ingestion, got %v, %v", passages, err)
	}

	if err := store.DeleteCollection(ctx, "notes"); err != nil {
		t.Fatalf("Failed to delete collection: %v", err)
	}
	if store.HasCollection(ctx, "notes") {
		t.Error("Expected collection gone after delete")
	}

	passages, err = retriever.QueryDoc(ctx, "notes", "fox", 3)
	if err != nil {
		t.Fatalf("Expected graceful degrade after delete, got %v", err)
	}
	if passages != nil {
		t.Errorf("Expected no results after delete, got %v", passages)
	}
}
