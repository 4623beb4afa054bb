// ABOUTME: Client-server vector store backend for Milvus
// ABOUTME: Manages per-collection schemas lazily, cosine HNSW index on the vector field
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/omni-webui/omni-webui/internal/models"
	"github.com/omni-webui/omni-webui/internal/vector"
)

// Field names shared by every collection schema.
const (
	FieldID       = "id"
	FieldText     = "text"
	FieldMetadata = "metadata"
	FieldVector   = "vector"
)

const (
	idMaxLength   = "255"
	textMaxLength = "65535"

	// Milvus requires an upper bound on query results. Large enough for a
	// full collection dump in practice.
	getLimit = 16384
)

// Store is the Milvus backend. Collections are created lazily on first
// insert because the vector dimension is only known once data arrives.
type Store struct {
	client *milvusclient.Client
}

// Open connects to a Milvus server.
func Open(ctx context.Context, addr string) (*Store, error) {
	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: addr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus at %s: %w", addr, err)
	}
	return &Store{client: client}, nil
}

// HasCollection reports whether the collection exists on the server.
func (s *Store) HasCollection(ctx context.Context, collection string) bool {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(collection))
	if err != nil {
		log.Printf("milvus: has-collection check for %s failed: %v", collection, err)
		return false
	}
	return exists
}

// ensureCollection creates and loads the collection if needed, using the
// dimension of the incoming vectors.
func (s *Store) ensureCollection(ctx context.Context, collection string, dim int) error {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(collection))
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", collection, err)
	}
	if !exists {
		schema := &entity.Schema{
			CollectionName: collection,
			Description:    "Document vectors for retrieval",
			Fields: []*entity.Field{
				{
					Name:       FieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{
						"max_length": idMaxLength,
					},
				},
				{
					Name:     FieldText,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": textMaxLength,
					},
				},
				{
					Name:     FieldMetadata,
					DataType: entity.FieldTypeJSON,
				},
				{
					Name:     FieldVector,
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", dim),
					},
				},
			},
		}

		createOpt := milvusclient.NewCreateCollectionOption(collection, schema)
		createOpt.WithShardNum(1)
		if err := s.client.CreateCollection(ctx, createOpt); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", collection, err)
		}

		idx := index.NewHNSWIndex(entity.COSINE, 16, 200)
		indexOpt := milvusclient.NewCreateIndexOption(collection, FieldVector, idx)
		if _, err := s.client.CreateIndex(ctx, indexOpt); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", collection, err)
		}
	}

	loadOpt := milvusclient.NewLoadCollectionOption(collection)
	if _, err := s.client.LoadCollection(ctx, loadOpt); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", collection, err)
	}
	return nil
}

// Insert writes items, overwriting rows that share an id.
func (s *Store) Insert(ctx context.Context, collection string, items []models.VectorItem) error {
	return s.write(ctx, collection, items)
}

// Upsert writes items, overwriting rows that share an id.
func (s *Store) Upsert(ctx context.Context, collection string, items []models.VectorItem) error {
	return s.write(ctx, collection, items)
}

func (s *Store) write(ctx context.Context, collection string, items []models.VectorItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, collection, len(items[0].Vector)); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrBackendUnavailable, err)
	}

	for _, batch := range vector.SplitBatches(items) {
		ids := make([]string, len(batch))
		texts := make([]string, len(batch))
		metadatas := make([][]byte, len(batch))
		vectors := make([][]float32, len(batch))
		for i, item := range batch {
			ids[i] = item.ID
			texts[i] = item.Text
			vectors[i] = item.Vector
			md, err := json.Marshal(item.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode metadata for %s: %w", item.ID, err)
			}
			metadatas[i] = md
		}

		opt := milvusclient.NewColumnBasedInsertOption(collection,
			column.NewColumnVarChar(FieldID, ids),
			column.NewColumnVarChar(FieldText, texts),
			column.NewColumnJSONBytes(FieldMetadata, metadatas),
			column.NewColumnFloatVector(FieldVector, len(batch[0].Vector), vectors),
		)
		if _, err := s.client.Upsert(ctx, opt); err != nil {
			return fmt.Errorf("%w: upsert into %s: %v", vector.ErrBackendUnavailable, collection, err)
		}
	}
	return nil
}

// Search runs an ANN search per query vector.
func (s *Store) Search(ctx context.Context, collection string, vectors [][]float32, limit int) (*models.SearchResult, error) {
	if !s.HasCollection(ctx, collection) {
		return nil, nil
	}

	result := &models.SearchResult{}
	for _, v := range vectors {
		opt := milvusclient.NewSearchOption(collection, limit, []entity.Vector{entity.FloatVector(v)}).
			WithANNSField(FieldVector).
			WithOutputFields(FieldText, FieldMetadata)

		resultSets, err := s.client.Search(ctx, opt)
		if err != nil {
			log.Printf("milvus: search on %s degraded to no results: %v", collection, err)
			return nil, nil
		}

		var (
			ids       []string
			documents []string
			metadatas []models.Metadata
			distances []float32
		)
		for _, rs := range resultSets {
			for i := 0; i < rs.ResultCount; i++ {
				id, err := rs.IDs.GetAsString(i)
				if err != nil {
					return nil, fmt.Errorf("failed to read id from search result: %w", err)
				}
				text, metadata, err := rowFields(rs.GetColumn(FieldText), rs.GetColumn(FieldMetadata), i)
				if err != nil {
					return nil, err
				}
				ids = append(ids, id)
				documents = append(documents, text)
				metadatas = append(metadatas, metadata)
				// COSINE scores are similarities, convert to distance.
				distances = append(distances, 1-rs.Scores[i])
			}
		}
		result.IDs = append(result.IDs, ids)
		result.Documents = append(result.Documents, documents)
		result.Metadatas = append(result.Metadatas, metadatas)
		result.Distances = append(result.Distances, distances)
	}
	return result, nil
}

// Query fetches items whose metadata matches the filter exactly.
func (s *Store) Query(ctx context.Context, collection string, filter map[string]interface{}, limit int) (*models.GetResult, error) {
	if !s.HasCollection(ctx, collection) {
		return nil, nil
	}
	if limit <= 0 {
		limit = getLimit
	}

	opt := milvusclient.NewQueryOption(collection).
		WithFilter(filterExpr(filter)).
		WithOutputFields(FieldID, FieldText, FieldMetadata).
		WithLimit(limit)

	rs, err := s.client.Query(ctx, opt)
	if err != nil {
		log.Printf("milvus: query on %s degraded to no results: %v", collection, err)
		return nil, nil
	}
	return resultSetToGetResult(rs)
}

// Get dumps the whole collection.
func (s *Store) Get(ctx context.Context, collection string) (*models.GetResult, error) {
	if !s.HasCollection(ctx, collection) {
		return nil, nil
	}

	opt := milvusclient.NewQueryOption(collection).
		WithFilter(fmt.Sprintf(`%s != ""`, FieldID)).
		WithOutputFields(FieldID, FieldText, FieldMetadata).
		WithLimit(getLimit)

	rs, err := s.client.Query(ctx, opt)
	if err != nil {
		log.Printf("milvus: get on %s degraded to no results: %v", collection, err)
		return nil, nil
	}
	return resultSetToGetResult(rs)
}

// Delete removes items by id list or metadata filter.
func (s *Store) Delete(ctx context.Context, collection string, ids []string, filter map[string]interface{}) error {
	if !s.HasCollection(ctx, collection) {
		return nil
	}

	var opt milvusclient.DeleteOption
	switch {
	case len(ids) > 0:
		opt = milvusclient.NewDeleteOption(collection).WithStringIDs(FieldID, ids)
	case len(filter) > 0:
		opt = milvusclient.NewDeleteOption(collection).WithExpr(filterExpr(filter))
	default:
		return nil
	}
	if _, err := s.client.Delete(ctx, opt); err != nil {
		return fmt.Errorf("%w: delete from %s: %v", vector.ErrBackendUnavailable, collection, err)
	}
	return nil
}

// DeleteCollection drops the collection entirely.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	if err := s.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collection)); err != nil {
		return fmt.Errorf("%w: drop collection %s: %v", vector.ErrBackendUnavailable, collection, err)
	}
	return nil
}

// Reset drops every collection on the server.
// ListCollections returns every collection name in ascending order.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	collections, err := s.client.ListCollections(ctx, milvusclient.NewListCollectionOption())
	if err != nil {
		return nil, fmt.Errorf("%w: list collections: %v", vector.ErrBackendUnavailable, err)
	}
	sort.Strings(collections)
	return collections, nil
}

func (s *Store) Reset(ctx context.Context) error {
	collections, err := s.ListCollections(ctx)
	if err != nil {
		return err
	}
	for _, name := range collections {
		if err := s.DeleteCollection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the server connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close(context.Background())
	}
	return nil
}

// filterExpr translates an exact-match metadata filter into a Milvus
// boolean expression over the JSON metadata field.
func filterExpr(filter map[string]interface{}) string {
	expr := ""
	for key, value := range filter {
		var clause string
		switch v := value.(type) {
		case string:
			clause = fmt.Sprintf(`%s["%s"] == "%s"`, FieldMetadata, key, v)
		case bool:
			clause = fmt.Sprintf(`%s["%s"] == %t`, FieldMetadata, key, v)
		default:
			clause = fmt.Sprintf(`%s["%s"] == %v`, FieldMetadata, key, v)
		}
		if expr == "" {
			expr = clause
		} else {
			expr = expr + " and " + clause
		}
	}
	return expr
}

func rowFields(textCol, metadataCol column.Column, i int) (string, models.Metadata, error) {
	text := ""
	if textCol != nil {
		value, err := textCol.GetAsString(i)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read text field: %w", err)
		}
		text = value
	}

	metadata := models.Metadata{}
	if metadataCol != nil {
		raw, err := metadataCol.GetAsString(i)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read metadata field: %w", err)
		}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
				return "", nil, fmt.Errorf("corrupt metadata payload: %w", err)
			}
		}
	}
	return text, metadata, nil
}

func resultSetToGetResult(rs milvusclient.ResultSet) (*models.GetResult, error) {
	idCol := rs.GetColumn(FieldID)
	if idCol == nil || idCol.Len() == 0 {
		return &models.GetResult{
			IDs:       [][]string{{}},
			Documents: [][]string{{}},
			Metadatas: [][]models.Metadata{{}},
		}, nil
	}

	textCol := rs.GetColumn(FieldText)
	metadataCol := rs.GetColumn(FieldMetadata)

	var (
		ids       []string
		documents []string
		metadatas []models.Metadata
	)
	for i := 0; i < idCol.Len(); i++ {
		id, err := idCol.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read id field: %w", err)
		}
		text, metadata, err := rowFields(textCol, metadataCol, i)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		documents = append(documents, text)
		metadatas = append(metadatas, metadata)
	}
	return &models.GetResult{
		IDs:       [][]string{ids},
		Documents: [][]string{documents},
		Metadatas: [][]models.Metadata{metadatas},
	}, nil
}

var _ vector.Store = (*Store)(nil)
