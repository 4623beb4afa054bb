// ABOUTME: Uniform vector store contract implemented by every backend
// ABOUTME: Defines the Store interface, sentinel errors and insert batch sizing
package vector

import (
	"context"
	"errors"

	"github.com/omni-webui/omni-webui/internal/models"
)

// ErrBackendUnavailable wraps write-path failures of a backend. Read-path
// failures (Search/Query/Get) degrade to a nil result instead so retrieval
// can still answer with zero passages.
var ErrBackendUnavailable = errors.New("vector store backend unavailable")

// InsertBatchSize caps the number of items sent to a backend in one write.
// Insert and Upsert split larger batches transparently.
const InsertBatchSize = 100

// Store is the backend-transparent contract over a vector database. The same
// call sequence produces the same logical result whether the backend is an
// embedded file store, a client-server store or a relational table.
//
// Collections are created lazily on the first Insert/Upsert with cosine
// distance. Inserting an item whose id already exists replaces it, so Insert
// and Upsert behave identically with respect to id collisions on every
// backend.
//
// Search, Query and Get return (nil, nil) when the collection does not exist
// or the backend read fails; callers must treat nil as "no results".
type Store interface {
	// HasCollection reports whether the named collection exists.
	HasCollection(ctx context.Context, collection string) bool

	// ListCollections returns every collection name in ascending order.
	ListCollections(ctx context.Context) ([]string, error)

	// Insert appends items, creating the collection if absent.
	Insert(ctx context.Context, collection string, items []models.VectorItem) error

	// Upsert inserts items, replacing any that share an id.
	Upsert(ctx context.Context, collection string, items []models.VectorItem) error

	// Search returns up to limit nearest items per query vector, ascending
	// by distance.
	Search(ctx context.Context, collection string, vectors [][]float32, limit int) (*models.SearchResult, error)

	// Query fetches items matching the metadata filter exactly, without
	// similarity ranking. limit <= 0 means no limit.
	Query(ctx context.Context, collection string, filter map[string]interface{}, limit int) (*models.GetResult, error)

	// Get dumps the whole collection.
	Get(ctx context.Context, collection string) (*models.GetResult, error)

	// Delete removes items by id list or by metadata filter (exactly one of
	// the two is supplied).
	Delete(ctx context.Context, collection string, ids []string, filter map[string]interface{}) error

	// DeleteCollection drops a single collection.
	DeleteCollection(ctx context.Context, collection string) error

	// Reset drops every collection.
	Reset(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// SplitBatches slices items into InsertBatchSize-sized sub-batches.
func SplitBatches(items []models.VectorItem) [][]models.VectorItem {
	if len(items) == 0 {
		return nil
	}
	var batches [][]models.VectorItem
	for start := 0; start < len(items); start += InsertBatchSize {
		end := start + InsertBatchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

// MatchesFilter reports whether metadata satisfies every filter entry.
// Numeric values compare across int/int64/float64 so JSON round-trips do not
// break equality.
func MatchesFilter(md models.Metadata, filter map[string]interface{}) bool {
	for key, want := range filter {
		got, ok := md[key]
		if !ok {
			return false
		}
		if !looseEqual(got, want) {
			return false
		}
	}
	return true
}

func looseEqual(a, b interface{}) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
