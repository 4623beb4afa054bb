// ABOUTME: Cross-encoder reranker backed by a text-embeddings-inference server
// ABOUTME: POSTs query and candidates to /rerank, scores return in input order
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/omni-webui/omni-webui/internal/util"
)

// CrossEncoderConfig holds connection settings for the reranking server.
type CrossEncoderConfig struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
	Timeout    time.Duration
}

// CrossEncoder scores query/candidate pairs with a remote cross-encoder
// model served behind a /rerank endpoint.
type CrossEncoder struct {
	baseURL    string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
}

// NewCrossEncoder creates a remote cross-encoder reranker.
func NewCrossEncoder(cfg CrossEncoderConfig) *CrossEncoder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &CrossEncoder{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: maxRetries,
		retryDelay: time.Second,
		client:     &http.Client{Timeout: timeout},
	}
}

// Score returns one relevance score per candidate in input order.
func (c *CrossEncoder) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(util.CalculateBackoff(c.retryDelay, attempt)):
			}
		}

		scores, err := c.request(ctx, query, candidates)
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		return scores, nil
	}
	return nil, fmt.Errorf("%w: rerank failed after %d attempts: %v",
		ErrUnavailable, c.maxRetries+1, lastErr)
}

func (c *CrossEncoder) request(ctx context.Context, query string, candidates []string) ([]float64, error) {
	body, err := json.Marshal(map[string]any{
		"query": query,
		"texts": candidates,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank server returned %s", resp.Status)
	}

	// The server returns results sorted by score, each carrying the index
	// of the candidate it scored.
	var parsed []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	if len(parsed) != len(candidates) {
		return nil, fmt.Errorf("rerank response has %d results for %d candidates", len(parsed), len(candidates))
	}

	scores := make([]float64, len(candidates))
	for _, r := range parsed {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank result index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
	}
	return scores, nil
}
