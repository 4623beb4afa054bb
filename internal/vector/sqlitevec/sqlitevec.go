// ABOUTME: Relational vector store backend over SQLite
// ABOUTME: Uses modernc.org/sqlite for pure-Go SQLite support, cosine ranking in Go
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/omni-webui/omni-webui/internal/models"
	"github.com/omni-webui/omni-webui/internal/vector"
)

// Schema contains all SQL statements for database initialization.
const Schema = `
-- Vector items, one row per item, keyed by (collection, id)
CREATE TABLE IF NOT EXISTS vector_items (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    text TEXT NOT NULL,
    vector BLOB NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_vector_items_collection ON vector_items(collection);
`

// Store is the relational backend. Each collection is a key range within one
// vector_items table; similarity ranking happens in Go after a bulk row read.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens or creates a SQLite-backed store at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{conn: conn, path: path}
	if err := store.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// OpenInMemory creates an in-memory store (for testing).
func OpenInMemory() (*Store, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	store := &Store{conn: conn, path: ":memory:"}
	if err := store.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.conn.Exec(Schema)
	return err
}

// HasCollection reports whether any row exists for the collection.
func (s *Store) HasCollection(ctx context.Context, collection string) bool {
	var one int
	err := s.conn.QueryRowContext(ctx,
		`SELECT 1 FROM vector_items WHERE collection = ? LIMIT 1`, collection).Scan(&one)
	return err == nil
}

// ListCollections returns every collection name in ascending order.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT DISTINCT collection FROM vector_items ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("%w: list collections: %v", vector.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: list collections: %v", vector.ErrBackendUnavailable, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list collections: %v", vector.ErrBackendUnavailable, err)
	}
	return names, nil
}

// Insert appends items, replacing rows that share an id.
func (s *Store) Insert(ctx context.Context, collection string, items []models.VectorItem) error {
	for _, batch := range vector.SplitBatches(items) {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin insert into %s: %v", vector.ErrBackendUnavailable, collection, err)
		}
		for _, item := range batch {
			metadata, err := json.Marshal(item.Metadata)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to encode metadata for %s: %w", item.ID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO vector_items (collection, id, text, vector, metadata)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(collection, id) DO UPDATE SET
					text = excluded.text,
					vector = excluded.vector,
					metadata = excluded.metadata`,
				collection, item.ID, item.Text, encodeVector(item.Vector), string(metadata))
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("%w: insert into %s: %v", vector.ErrBackendUnavailable, collection, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit insert into %s: %v", vector.ErrBackendUnavailable, collection, err)
		}
	}
	return nil
}

// Upsert is identical to Insert for this backend.
func (s *Store) Upsert(ctx context.Context, collection string, items []models.VectorItem) error {
	return s.Insert(ctx, collection, items)
}

// Search loads the collection rows and ranks them by cosine distance.
func (s *Store) Search(ctx context.Context, collection string, vectors [][]float32, limit int) (*models.SearchResult, error) {
	items, err := s.loadCollection(ctx, collection)
	if err != nil {
		log.Printf("sqlitevec: search on %s degraded to no results: %v", collection, err)
		return nil, nil
	}
	if items == nil {
		return nil, nil
	}
	return vector.ScanSearch(items, vectors, limit), nil
}

// Query fetches items matching the metadata filter exactly.
func (s *Store) Query(ctx context.Context, collection string, filter map[string]interface{}, limit int) (*models.GetResult, error) {
	items, err := s.loadCollection(ctx, collection)
	if err != nil {
		log.Printf("sqlitevec: query on %s degraded to no results: %v", collection, err)
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
	items, err := s.loadCollection(ctx, collection)
	if err != nil {
		log.Printf("sqlitevec: get on %s degraded to no results: %v", collection, err)
		return nil, nil
	}
	if items == nil {
		return nil, nil
	}
	return vector.ItemsToGetResult(items), nil
}

// Delete removes items by id list or metadata filter.
func (s *Store) Delete(ctx context.Context, collection string, ids []string, filter map[string]interface{}) error {
	if len(ids) > 0 {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin delete from %s: %v", vector.ErrBackendUnavailable, collection, err)
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vector_items WHERE collection = ? AND id = ?`, collection, id); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("%w: delete from %s: %v", vector.ErrBackendUnavailable, collection, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit delete from %s: %v", vector.ErrBackendUnavailable, collection, err)
		}
		return nil
	}

	if len(filter) > 0 {
		items, err := s.loadCollection(ctx, collection)
		if err != nil {
			return fmt.Errorf("%w: delete from %s: %v", vector.ErrBackendUnavailable, collection, err)
		}
		var doomed []string
		for _, item := range items {
			if vector.MatchesFilter(item.Metadata, filter) {
				doomed = append(doomed, item.ID)
			}
		}
		if len(doomed) == 0 {
			return nil
		}
		return s.Delete(ctx, collection, doomed, nil)
	}
	return nil
}

// DeleteCollection drops every row of the collection.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM vector_items WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("%w: delete collection %s: %v", vector.ErrBackendUnavailable, collection, err)
	}
	return nil
}

// Reset drops every collection.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM vector_items`); err != nil {
		return fmt.Errorf("%w: reset: %v", vector.ErrBackendUnavailable, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// loadCollection returns all items, or nil items when the collection does
// not exist.
func (s *Store) loadCollection(ctx context.Context, collection string) ([]models.VectorItem, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, text, vector, metadata FROM vector_items
		WHERE collection = ? ORDER BY created_at, id`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.VectorItem
	for rows.Next() {
		var (
			item     models.VectorItem
			blob     []byte
			metadata string
		)
		if err := rows.Scan(&item.ID, &item.Text, &blob, &metadata); err != nil {
			return nil, err
		}
		item.Vector = decodeVector(blob)
		if err := json.Unmarshal([]byte(metadata), &item.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata for %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if items == nil {
		// Collections are created lazily on first insert, so no rows means
		// the collection does not exist.
		return nil, nil
	}
	return items, nil
}

// encodeVector packs a float32 slice as little-endian bytes for BLOB storage.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a BLOB written by encodeVector.
func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
