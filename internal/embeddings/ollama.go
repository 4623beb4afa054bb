// ABOUTME: Remote embedding engine for Ollama's /api/embed endpoint
// ABOUTME: Batched requests with exponential backoff retries
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/omni-webui/omni-webui/internal/util"
)

// DefaultOllamaBaseURL is the local Ollama daemon address.
const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaConfig holds connection settings for the Ollama encoder.
type OllamaConfig struct {
	BaseURL    string
	Model      string
	BatchSize  int
	MaxRetries int
	Timeout    time.Duration
}

// OllamaEncoder embeds text via a running Ollama instance.
type OllamaEncoder struct {
	baseURL    string
	model      string
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	client     *http.Client
}

// NewOllamaEncoder creates an Ollama-backed encoder.
func NewOllamaEncoder(cfg OllamaConfig) *OllamaEncoder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &OllamaEncoder{
		baseURL:    baseURL,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		maxRetries: maxRetries,
		retryDelay: 2 * time.Second,
		timeout:    timeout,
		client:     &http.Client{Timeout: timeout},
	}
}

// Embed encodes texts in sub-batches, failing the whole call if any
// sub-batch cannot be embedded.
func (e *OllamaEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return embedBatched(ctx, texts, e.batchSize, 4, e.embedBatch)
}

func (e *OllamaEncoder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(util.CalculateBackoff(e.retryDelay, attempt)):
			}
		}

		vectors, err := e.request(ctx, batch)
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		return vectors, nil
	}
	return nil, fmt.Errorf("%w: ollama embed failed after %d attempts: %v",
		ErrProviderUnavailable, e.maxRetries+1, lastErr)
}

func (e *OllamaEncoder) request(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model": e.model,
		"input": batch,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned %s", resp.Status)
	}

	var parsed struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if len(parsed.Embeddings) != len(batch) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(parsed.Embeddings), len(batch))
	}
	return parsed.Embeddings, nil
}
