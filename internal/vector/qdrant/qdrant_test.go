// ABOUTME: Tests for the Qdrant REST backend against a stub HTTP server
// ABOUTME: Verifies request shapes, score conversion, and degraded reads
package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/omni-webui/omni-webui/internal/models"
)

type stubServer struct {
	*httptest.Server
	requests map[string][]json.RawMessage
	exists   bool
}

func newStubServer(t *testing.T) *stubServer {
	t.Helper()
	stub := &stubServer{requests: make(map[string][]json.RawMessage)}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		key := r.Method + " " + r.URL.Path
		stub.requests[key] = append(stub.requests[key], body)

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/docs/exists":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"exists": stub.exists},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/search":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": []map[string]any{
					{
						"id":    "p1",
						"score": 0.9,
						"payload": map[string]any{
							"text":     "first passage",
							"metadata": map[string]any{"hash": "aaa"},
						},
					},
					{
						"id":    "p2",
						"score": 0.4,
						"payload": map[string]any{
							"text":     "second passage",
							"metadata": map[string]any{"hash": "bbb"},
						},
					},
				},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/scroll":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"points": []map[string]any{
						{
							"id": "p1",
							"payload": map[string]any{
								"text":     "first passage",
								"metadata": map[string]any{"hash": "aaa"},
							},
						},
					},
					"next_page_offset": nil,
				},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/collections":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"collections": []map[string]any{
						{"name": "zeta"},
						{"name": "docs"},
					},
				},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{}})
		}
	}))
	t.Cleanup(stub.Close)
	return stub
}

func TestInsertCreatesCollectionAndUpsertsPoints(t *testing.T) {
	stub := newStubServer(t)
	store := New(Config{URL: stub.URL})

	items := []models.VectorItem{{
		ID:       "p1",
		Text:     "first passage",
		Vector:   []float32{1, 0},
		Metadata: models.Metadata{"hash": "aaa"},
	}}
	if err := store.Insert(context.Background(), "docs", items); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	if len(stub.requests["PUT /collections/docs"]) != 1 {
		t.Error("Expected collection creation request")
	}
	puts := stub.requests["PUT /collections/docs/points"]
	if len(puts) != 1 {
		t.Fatalf("Expected 1 point upsert, got %d", len(puts))
	}

	var body struct {
		Points []struct {
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	if err := json.Unmarshal(puts[0], &body); err != nil {
		t.Fatalf("Failed to decode upsert body: %v", err)
	}
	if len(body.Points) != 1 || body.Points[0].ID != "p1" {
		t.Errorf("Expected point p1, got %+v", body.Points)
	}
	if body.Points[0].Payload["text"] != "first passage" {
		t.Errorf("Expected text payload, got %v", body.Points[0].Payload)
	}
}

func TestSearchConvertsScoresToDistances(t *testing.T) {
	stub := newStubServer(t)
	stub.exists = true
	store := New(Config{URL: stub.URL})

	result, err := store.Search(context.Background(), "docs", [][]float32{{1, 0}}, 2)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	if result.IDs[0][0] != "p1" || result.IDs[0][1] != "p2" {
		t.Errorf("Expected ids p1, p2, got %v", result.IDs[0])
	}
	if d := result.Distances[0][0]; d < 0.09 || d > 0.11 {
		t.Errorf("Expected distance near 0.1 for score 0.9, got %f", d)
	}
	if result.Metadatas[0][1].GetString("hash") != "bbb" {
		t.Errorf("Expected metadata round trip, got %v", result.Metadatas[0][1])
	}
}

func TestSearchMissingCollectionDegrades(t *testing.T) {
	stub := newStubServer(t)
	stub.exists = false
	store := New(Config{URL: stub.URL})

	result, err := store.Search(context.Background(), "docs", [][]float32{{1, 0}}, 2)
	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result, got %v", result)
	}
}

func TestQueryUsesPayloadFilter(t *testing.T) {
	stub := newStubServer(t)
	stub.exists = true
	store := New(Config{URL: stub.URL})

	result, err := store.Query(context.Background(), "docs", map[string]interface{}{"hash": "aaa"}, 10)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if result == nil || len(result.IDs[0]) != 1 {
		t.Fatalf("Expected one match, got %v", result)
	}

	scrolls := stub.requests["POST /collections/docs/points/scroll"]
	if len(scrolls) != 1 {
		t.Fatalf("Expected 1 scroll request, got %d", len(scrolls))
	}
	var body struct {
		Filter struct {
			Must []struct {
				Key   string `json:"key"`
				Match struct {
					Value any `json:"value"`
				} `json:"match"`
			} `json:"must"`
		} `json:"filter"`
	}
	if err := json.Unmarshal(scrolls[0], &body); err != nil {
		t.Fatalf("Failed to decode scroll body: %v", err)
	}
	if len(body.Filter.Must) != 1 || body.Filter.Must[0].Key != "metadata.hash" {
		t.Errorf("Expected metadata.hash filter clause, got %+v", body.Filter.Must)
	}
}

func TestDeleteByIDs(t *testing.T) {
	stub := newStubServer(t)
	stub.exists = true
	store := New(Config{URL: stub.URL})

	if err := store.Delete(context.Background(), "docs", []string{"p1"}, nil); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if len(stub.requests["POST /collections/docs/points/delete"]) != 1 {
		t.Error("Expected a points delete request")
	}
}

func TestDeleteCollection(t *testing.T) {
	stub := newStubServer(t)
	store := New(Config{URL: stub.URL})

	if err := store.DeleteCollection(context.Background(), "docs"); err != nil {
		t.Fatalf("Failed to delete collection: %v", err)
	}
	if len(stub.requests["DELETE /collections/docs"]) != 1 {
		t.Error("Expected a collection delete request")
	}
}

func TestListCollectionsSorted(t *testing.T) {
	stub := newStubServer(t)
	store := New(Config{URL: stub.URL})

	names, err := store.ListCollections(context.Background())
	if err != nil {
		t.Fatalf("Failed to list collections: %v", err)
	}
	if len(names) != 2 || names[0] != "docs" || names[1] != "zeta" {
		t.Errorf("Expected sorted [docs zeta], got %v", names)
	}
}
