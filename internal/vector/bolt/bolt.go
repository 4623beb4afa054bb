// ABOUTME: Embedded on-disk vector store backend over bbolt
// ABOUTME: One bucket per collection, JSON-encoded items, exact-scan cosine search
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/omni-webui/omni-webui/internal/models"
	"github.com/omni-webui/omni-webui/internal/vector"
)

// Store is the embedded backend. Every collection maps to a bbolt bucket and
// every item to one JSON-encoded value keyed by its id, so an id collision on
// insert naturally replaces the previous item.
type Store struct {
	db   *bbolt.DB
	path string
}

// Open opens or creates the store file at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// HasCollection reports whether a bucket exists for the collection.
func (s *Store) HasCollection(ctx context.Context, collection string) bool {
	exists := false
	_ = s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket([]byte(collection)) != nil
		return nil
	})
	return exists
}

// ListCollections returns every bucket name in ascending order.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list collections: %v", vector.ErrBackendUnavailable, err)
	}
	sort.Strings(names)
	return names, nil
}

// Insert appends items, creating the collection bucket if absent. Items that
// share an id with a stored item replace it.
func (s *Store) Insert(ctx context.Context, collection string, items []models.VectorItem) error {
	for _, batch := range vector.SplitBatches(items) {
		err := s.db.Update(func(tx *bbolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
			if err != nil {
				return err
			}
			for _, item := range batch {
				data, err := json.Marshal(item)
				if err != nil {
					return fmt.Errorf("failed to encode item %s: %w", item.ID, err)
				}
				if err := bucket.Put([]byte(item.ID), data); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: insert into %s: %v", vector.ErrBackendUnavailable, collection, err)
		}
	}
	return nil
}

// Upsert is identical to Insert for this backend.
func (s *Store) Upsert(ctx context.Context, collection string, items []models.VectorItem) error {
	return s.Insert(ctx, collection, items)
}

// Search scans the collection and returns the nearest items per query vector.
func (s *Store) Search(ctx context.Context, collection string, vectors [][]float32, limit int) (*models.SearchResult, error) {
	items, err := s.loadCollection(collection)
	if err != nil {
		log.Printf("bolt: search on %s degraded to no results: %v", collection, err)
		return nil, nil
	}
	if items == nil {
		return nil, nil
	}
	return vector.ScanSearch(items, vectors, limit), nil
}

// Query fetches items matching the metadata filter exactly.
func (s *Store) Query(ctx context.Context, collection string, filter map[string]interface{}, limit int) (*models.GetResult, error) {
	items, err := s.loadCollection(collection)
	if err != nil {
		log.Printf("bolt: query on %s degraded to no results: %v", collection, err)
		return nil, nil
	}
	if items == nil {
		return nil, nil
	}

	var matched []models.VectorItem
	for _, item := range items {
		if vector.MatchesFilter(item.Metadata, filter) {
			matched = append(matched, item)
			if limit > 0 && len(matched) >= limit {
				break
			}
		}
	}
	return vector.ItemsToGetResult(matched), nil
}

// Get dumps the whole collection.
func (s *Store) Get(ctx context.Context, collection string) (*models.GetResult, error) {
	items, err := s.loadCollection(collection)
	if err != nil {
		log.Printf("bolt: get on %s degraded to no results: %v", collection, err)
		return nil, nil
	}
	if items == nil {
		return nil, nil
	}
	return vector.ItemsToGetResult(items), nil
}

// Delete removes items by id list or metadata filter.
func (s *Store) Delete(ctx context.Context, collection string, ids []string, filter map[string]interface{}) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}

		if len(ids) > 0 {
			for _, id := range ids {
				if err := bucket.Delete([]byte(id)); err != nil {
					return err
				}
			}
			return nil
		}

		if len(filter) > 0 {
			var doomed [][]byte
			cursor := bucket.Cursor()
			for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
				var item models.VectorItem
				if err := json.Unmarshal(value, &item); err != nil {
					continue
				}
				if vector.MatchesFilter(item.Metadata, filter) {
					doomed = append(doomed, append([]byte(nil), key...))
				}
			}
			for _, key := range doomed {
				if err := bucket.Delete(key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: delete from %s: %v", vector.ErrBackendUnavailable, collection, err)
	}
	return nil
}

// DeleteCollection drops the collection bucket.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket([]byte(collection))
	})
	if err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
		return fmt.Errorf("%w: delete collection %s: %v", vector.ErrBackendUnavailable, collection, err)
	}
	return nil
}

// Reset drops every collection bucket.
func (s *Store) Reset(ctx context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var names [][]byte
		if err := tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range names {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: reset: %v", vector.ErrBackendUnavailable, err)
	}
	return nil
}

// Close closes the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// loadCollection returns all items, or nil items when the collection does
// not exist.
func (s *Store) loadCollection(collection string) ([]models.VectorItem, error) {
	var items []models.VectorItem
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		found = true
		return bucket.ForEach(func(_, value []byte) error {
			var item models.VectorItem
			if err := json.Unmarshal(value, &item); err != nil {
				return fmt.Errorf("corrupt item in %s: %w", collection, err)
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if items == nil {
		items = []models.VectorItem{}
	}
	return items, nil
}
