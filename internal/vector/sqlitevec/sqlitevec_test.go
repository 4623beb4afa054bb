// ABOUTME: Tests for the SQLite vector store backend
// ABOUTME: Uses in-memory databases, verifies persistence via file reopen
package sqlitevec

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/omni-webui/omni-webui/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleItems() []models.VectorItem {
	return []models.VectorItem{
		{
			ID:       "doc-1",
			Text:     "first passage",
			Vector:   []float32{1, 0},
			Metadata: models.Metadata{"hash": "aaa", "name": "first"},
		},
		{
			ID:       "doc-2",
			Text:     "second passage",
			Vector:   []float32{0, 1},
			Metadata: models.Metadata{"hash": "bbb", "name": "second"},
		},
	}
}

func TestListCollections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "beta", sampleItems()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := store.Insert(ctx, "alpha", sampleItems()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	names, err := store.ListCollections(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Expected sorted [alpha beta], got %v", names)
	}
}

func TestInsertRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "docs", sampleItems()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	result, err := store.Get(ctx, "docs")
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if result == nil || len(result.IDs[0]) != 2 {
		t.Fatalf("Expected 2 items, got %v", result)
	}
	if result.Documents[0][0] != "first passage" {
		t.Errorf("Expected text round trip, got %q", result.Documents[0][0])
	}
	if result.Metadatas[0][1].GetString("hash") != "bbb" {
		t.Errorf("Expected metadata round trip, got %v", result.Metadatas[0][1])
	}
}

func TestUpsertReplacesRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "docs", sampleItems()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	changed := []models.VectorItem{{
		ID:       "doc-1",
		Text:     "first passage revised",
		Vector:   []float32{0.5, 0.5},
		Metadata: models.Metadata{"hash": "ccc"},
	}}
	if err := store.Upsert(ctx, "docs", changed); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	result, err := store.Query(ctx, "docs", map[string]interface{}{"hash": "ccc"}, 10)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if result == nil || len(result.IDs[0]) != 1 || result.IDs[0][0] != "doc-1" {
		t.Fatalf("Expected upserted row, got %v", result)
	}

	all, err := store.Get(ctx, "docs")
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if len(all.IDs[0]) != 2 {
		t.Errorf("Expected 2 rows after upsert, got %d", len(all.IDs[0]))
	}
}

func TestSearchRanksByCosine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "docs", sampleItems()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	result, err := store.Search(ctx, "docs", [][]float32{{0, 1}}, 2)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	if result.IDs[0][0] != "doc-2" {
		t.Errorf("Expected doc-2 to rank first, got %s", result.IDs[0][0])
	}
	if result.Distances[0][0] > 0.0001 {
		t.Errorf("Expected near-zero distance for exact match, got %f", result.Distances[0][0])
	}
}

func TestSearchMissingCollectionDegrades(t *testing.T) {
	store := newTestStore(t)

	result, err := store.Search(context.Background(), "missing", [][]float32{{1, 0}}, 3)
	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result, got %v", result)
	}
}

func TestDeleteByFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "docs", sampleItems()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := store.Delete(ctx, "docs", nil, map[string]interface{}{"name": "first"}); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	result, err := store.Get(ctx, "docs")
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if len(result.IDs[0]) != 1 || result.IDs[0][0] != "doc-2" {
		t.Errorf("Expected only doc-2 to remain, got %v", result.IDs)
	}
}

func TestResetAndDeleteCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "docs", sampleItems()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := store.Insert(ctx, "notes", sampleItems()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	if err := store.DeleteCollection(ctx, "docs"); err != nil {
		t.Fatalf("Failed to delete collection: %v", err)
	}
	if store.HasCollection(ctx, "docs") {
		t.Error("Expected docs collection gone")
	}
	if !store.HasCollection(ctx, "notes") {
		t.Error("Expected notes collection to survive")
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if store.HasCollection(ctx, "notes") {
		t.Error("Expected notes collection gone after reset")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := store.Insert(ctx, "docs", sampleItems()); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	result, err := reopened.Get(ctx, "docs")
	if err != nil {
		t.Fatalf("Failed to get after reopen: %v", err)
	}
	if result == nil || len(result.IDs[0]) != 2 {
		t.Fatalf("Expected 2 items after reopen, got %v", result)
	}
}

func TestVectorEncoding(t *testing.T) {
	in := []float32{0.25, -1.5, 3.75, 0}
	out := decodeVector(encodeVector(in))
	if len(out) != len(in) {
		t.Fatalf("Expected %d floats, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("Expected %f at index %d, got %f", in[i], i, out[i])
		}
	}
}
