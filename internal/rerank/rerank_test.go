// ABOUTME: Tests for cross-encoder and late-interaction rerankers
// ABOUTME: Distribution properties and relevance ordering are the contract
package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/omni-webui/omni-webui/internal/embeddings"
)

func TestLateInteractionDistribution(t *testing.T) {
	reranker := NewLateInteraction(embeddings.NewLocalEncoder(128))

	scores, err := reranker.Score(context.Background(), "brown fox", []string{
		"the quick brown fox",
		"stock market earnings",
		"a brown fox ran past",
	})
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("Expected 3 scores, got %d", len(scores))
	}

	var sum float64
	for i, s := range scores {
		if s < 0 || s > 1 {
			t.Errorf("Score %d out of [0,1]: %f", i, s)
		}
		sum += s
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("Expected scores to sum to 1, got %f", sum)
	}
}

func TestLateInteractionPrefersRelevantCandidate(t *testing.T) {
	reranker := NewLateInteraction(embeddings.NewLocalEncoder(128))

	scores, err := reranker.Score(context.Background(), "quick brown fox", []string{
		"quarterly report on grain futures",
		"the quick brown fox jumps",
	})
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	if scores[1] <= scores[0] {
		t.Errorf("Expected relevant candidate to score higher, got %v", scores)
	}
}

func TestLateInteractionEmptyCandidates(t *testing.T) {
	reranker := NewLateInteraction(embeddings.NewLocalEncoder(64))
	scores, err := reranker.Score(context.Background(), "query", nil)
	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if scores != nil {
		t.Errorf("Expected nil scores, got %v", scores)
	}
}

func TestSoftmaxUniformForEqualScores(t *testing.T) {
	out := softmax([]float64{3, 3, 3, 3})
	for i, v := range out {
		if math.Abs(v-0.25) > 1e-9 {
			t.Errorf("Expected uniform 0.25 at %d, got %f", i, v)
		}
	}
}

func TestCrossEncoderScoresInInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var req struct {
			Query string   `json:"query"`
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Query != "fox" {
			t.Errorf("Expected query fox, got %q", req.Query)
		}
		// Sorted by score, as the server would return them.
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"index": 1, "score": 0.95},
			{"index": 0, "score": 0.10},
		})
	}))
	defer server.Close()

	reranker := NewCrossEncoder(CrossEncoderConfig{BaseURL: server.URL})
	scores, err := reranker.Score(context.Background(), "fox", []string{"grain futures", "the quick brown fox"})
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	if scores[0] != 0.10 || scores[1] != 0.95 {
		t.Errorf("Expected scores mapped back to input order, got %v", scores)
	}
}

func TestCrossEncoderServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	reranker := NewCrossEncoder(CrossEncoderConfig{BaseURL: server.URL, MaxRetries: 1})
	reranker.retryDelay = 0

	_, err := reranker.Score(context.Background(), "q", []string{"a"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestCrossEncoderRejectsTruncatedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"index":0,"score":0.9}]`)
	}))
	defer server.Close()

	reranker := NewCrossEncoder(CrossEncoderConfig{BaseURL: server.URL, MaxRetries: 1})
	reranker.retryDelay = 0

	_, err := reranker.Score(context.Background(), "q", []string{"a", "b"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for truncated response, got %v", err)
	}
}
