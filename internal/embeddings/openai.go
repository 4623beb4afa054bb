// ABOUTME: Remote embedding engine for OpenAI-compatible APIs
// ABOUTME: Uses go-openai with batched requests and backoff retries
package embeddings

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/omni-webui/omni-webui/internal/util"
)

// OpenAIConfig holds connection settings for the OpenAI encoder.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	BatchSize  int
	MaxRetries int
}

// OpenAIEncoder embeds text via the OpenAI embeddings API, or any
// compatible server when BaseURL is set.
type OpenAIEncoder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	batchSize  int
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIEncoder creates an OpenAI-backed encoder.
func NewOpenAIEncoder(cfg OpenAIConfig) (*OpenAIEncoder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.SmallEmbedding3
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &OpenAIEncoder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		batchSize:  cfg.BatchSize,
		maxRetries: maxRetries,
		retryDelay: 2 * time.Second,
	}, nil
}

// Embed encodes texts in sub-batches, failing the whole call if any
// sub-batch cannot be embedded.
func (e *OpenAIEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return embedBatched(ctx, texts, e.batchSize, 4, e.embedBatch)
}

func (e *OpenAIEncoder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(util.CalculateBackoff(e.retryDelay, attempt)):
			}
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: batch,
			Model: e.model,
		})
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Data) != len(batch) {
			lastErr = fmt.Errorf("attempt %d: got %d embeddings for %d texts",
				attempt+1, len(resp.Data), len(batch))
			continue
		}

		vectors := make([][]float32, len(resp.Data))
		for _, d := range resp.Data {
			vectors[d.Index] = d.Embedding
		}
		return vectors, nil
	}
	return nil, fmt.Errorf("%w: openai embed failed after %d attempts: %v",
		ErrProviderUnavailable, e.maxRetries+1, lastErr)
}
