// ABOUTME: Client-server vector store backend for Qdrant over its REST API
// ABOUTME: Cosine distance collections, payload carries text and metadata
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/omni-webui/omni-webui/internal/models"
	"github.com/omni-webui/omni-webui/internal/vector"
)

const scrollPageSize = 256

// Store is a minimal REST client to Qdrant. Collections are created lazily
// on first insert with cosine distance.
//
// Qdrant only accepts UUIDs or unsigned integers as point ids, so item ids
// must be one of the two. The ingestion pipeline always generates UUID ids;
// direct Insert callers using other id shapes will get a write error from
// the server.
type Store struct {
	url    string
	apiKey string
	client *http.Client
}

// Config holds Qdrant connection settings.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// New creates a Qdrant-backed store.
func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

// HasCollection reports whether the collection exists on the server.
func (s *Store) HasCollection(ctx context.Context, collection string) bool {
	var resp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	err := s.getJSON(ctx, fmt.Sprintf("%s/collections/%s/exists", s.url, collection), &resp)
	if err != nil {
		log.Printf("qdrant: has-collection check for %s failed: %v", collection, err)
		return false
	}
	return resp.Result.Exists
}

func (s *Store) ensureCollection(ctx context.Context, collection string, dim int) error {
	if s.HasCollection(ctx, collection) {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, collection), body)
}

// Insert writes items, overwriting points that share an id.
func (s *Store) Insert(ctx context.Context, collection string, items []models.VectorItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, collection, len(items[0].Vector)); err != nil {
		return fmt.Errorf("%w: create collection %s: %v", vector.ErrBackendUnavailable, collection, err)
	}

	for _, batch := range vector.SplitBatches(items) {
		points := make([]map[string]any, len(batch))
		for i, item := range batch {
			points[i] = map[string]any{
				"id":     item.ID,
				"vector": item.Vector,
				"payload": map[string]any{
					"text":     item.Text,
					"metadata": item.Metadata,
				},
			}
		}
		body := map[string]any{"points": points}
		url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, collection)
		if err := s.putJSON(ctx, url, body); err != nil {
			return fmt.Errorf("%w: upsert into %s: %v", vector.ErrBackendUnavailable, collection, err)
		}
	}
	return nil
}

// Upsert is identical to Insert, Qdrant point writes always replace.
func (s *Store) Upsert(ctx context.Context, collection string, items []models.VectorItem) error {
	return s.Insert(ctx, collection, items)
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Search runs a similarity search per query vector.
func (s *Store) Search(ctx context.Context, collection string, vectors [][]float32, limit int) (*models.SearchResult, error) {
	if !s.HasCollection(ctx, collection) {
		return nil, nil
	}

	result := &models.SearchResult{}
	for _, v := range vectors {
		req := map[string]any{
			"vector":       v,
			"limit":        limit,
			"with_payload": true,
		}
		var resp struct {
			Result []scoredPoint `json:"result"`
		}
		url := fmt.Sprintf("%s/collections/%s/points/search", s.url, collection)
		if err := s.postJSON(ctx, url, req, &resp); err != nil {
			log.Printf("qdrant: search on %s degraded to no results: %v", collection, err)
			return nil, nil
		}

		var (
			ids       []string
			documents []string
			metadatas []models.Metadata
			distances []float32
		)
		for _, p := range resp.Result {
			id, text, metadata := decodePoint(p.ID, p.Payload)
			ids = append(ids, id)
			documents = append(documents, text)
			metadatas = append(metadatas, metadata)
			// Qdrant cosine scores are similarities, convert to distance.
			distances = append(distances, 1-p.Score)
		}
		result.IDs = append(result.IDs, ids)
		result.Documents = append(result.Documents, documents)
		result.Metadatas = append(result.Metadatas, metadatas)
		result.Distances = append(result.Distances, distances)
	}
	return result, nil
}

// Query fetches items whose metadata matches the filter exactly, using the
// scroll API with a payload filter.
func (s *Store) Query(ctx context.Context, collection string, filter map[string]interface{}, limit int) (*models.GetResult, error) {
	if !s.HasCollection(ctx, collection) {
		return nil, nil
	}
	items, err := s.scroll(ctx, collection, payloadFilter(filter), limit)
	if err != nil {
		log.Printf("qdrant: query on %s degraded to no results: %v", collection, err)
		return nil, nil
	}
	return vector.ItemsToGetResult(items), nil
}

// Get dumps the whole collection.
func (s *Store) Get(ctx context.Context, collection string) (*models.GetResult, error) {
	if !s.HasCollection(ctx, collection) {
		return nil, nil
	}
	items, err := s.scroll(ctx, collection, nil, 0)
	if err != nil {
		log.Printf("qdrant: get on %s degraded to no results: %v", collection, err)
		return nil, nil
	}
	return vector.ItemsToGetResult(items), nil
}

// Delete removes points by id list or metadata filter.
func (s *Store) Delete(ctx context.Context, collection string, ids []string, filter map[string]interface{}) error {
	if !s.HasCollection(ctx, collection) {
		return nil
	}

	var body map[string]any
	switch {
	case len(ids) > 0:
		body = map[string]any{"points": ids}
	case len(filter) > 0:
		body = map[string]any{"filter": payloadFilter(filter)}
	default:
		return nil
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, collection)
	if err := s.postJSON(ctx, url, body, nil); err != nil {
		return fmt.Errorf("%w: delete from %s: %v", vector.ErrBackendUnavailable, collection, err)
	}
	return nil
}

// DeleteCollection drops the collection entirely.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	url := fmt.Sprintf("%s/collections/%s", s.url, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("%w: drop collection %s: %v", vector.ErrBackendUnavailable, collection, err)
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: drop collection %s: %v", vector.ErrBackendUnavailable, collection, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: drop collection %s: %s", vector.ErrBackendUnavailable, collection, resp.Status)
	}
	return nil
}

// Reset drops every collection on the server.
func (s *Store) Reset(ctx context.Context) error {
	names, err := s.ListCollections(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.DeleteCollection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// ListCollections returns every collection name in ascending order.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.getJSON(ctx, s.url+"/collections", &resp); err != nil {
		return nil, fmt.Errorf("%w: list collections: %v", vector.ErrBackendUnavailable, err)
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Close releases the HTTP client's idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// scroll pages through collection points, optionally constrained by a
// payload filter. A limit of 0 means no limit.
func (s *Store) scroll(ctx context.Context, collection string, filter map[string]any, limit int) ([]models.VectorItem, error) {
	var (
		items  []models.VectorItem
		offset any
	)
	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
		}
		if filter != nil {
			req["filter"] = filter
		}
		if offset != nil {
			req["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points         []scoredPoint `json:"points"`
				NextPageOffset any           `json:"next_page_offset"`
			} `json:"result"`
		}
		url := fmt.Sprintf("%s/collections/%s/points/scroll", s.url, collection)
		if err := s.postJSON(ctx, url, req, &resp); err != nil {
			return nil, err
		}

		for _, p := range resp.Result.Points {
			id, text, metadata := decodePoint(p.ID, p.Payload)
			items = append(items, models.VectorItem{ID: id, Text: text, Metadata: metadata})
			if limit > 0 && len(items) >= limit {
				return items, nil
			}
		}
		if resp.Result.NextPageOffset == nil {
			return items, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// payloadFilter builds a Qdrant filter with one must clause per key,
// matching against the nested metadata payload.
func payloadFilter(filter map[string]interface{}) map[string]any {
	must := make([]map[string]any, 0, len(filter))
	for key, value := range filter {
		must = append(must, map[string]any{
			"key":   "metadata." + key,
			"match": map[string]any{"value": value},
		})
	}
	return map[string]any{"must": must}
}

func decodePoint(rawID any, payload map[string]any) (string, string, models.Metadata) {
	id := fmt.Sprintf("%v", rawID)
	text := ""
	if v, ok := payload["text"].(string); ok {
		text = v
	}
	metadata := models.Metadata{}
	if raw, ok := payload["metadata"].(map[string]any); ok {
		for k, v := range raw {
			metadata[k] = v
		}
	}
	return id, text, metadata
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant GET %s failed: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
