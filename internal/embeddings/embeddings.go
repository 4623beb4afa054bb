// ABOUTME: Embedding engine contract, text normalization, and batched fan-out
// ABOUTME: Engines are all-or-nothing, a failed sub-batch fails the whole call
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/omni-webui/omni-webui/internal/models"
)

// ErrProviderUnavailable wraps failures talking to a remote embedding
// provider after retries are exhausted.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// DefaultBatchSize caps how many texts go to a provider in one request.
const DefaultBatchSize = 32

// Encoder turns texts into dense vectors. Implementations preserve input
// order and return exactly one vector per text.
type Encoder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options carries provider credentials and endpoints for the factory.
type Options struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaBaseURL string

	// LocalDimension sets the vector width of the in-process engine.
	LocalDimension int

	// Concurrency bounds parallel sub-batch requests to remote providers.
	Concurrency int

	MaxRetries int
}

// New builds the encoder selected by the embedding config.
func New(cfg models.EmbeddingConfig, opts Options) (Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Engine {
	case models.EngineLocal:
		return NewLocalEncoder(opts.LocalDimension), nil
	case models.EngineOllama:
		return NewOllamaEncoder(OllamaConfig{
			BaseURL:    opts.OllamaBaseURL,
			Model:      cfg.Model,
			BatchSize:  cfg.BatchSize,
			MaxRetries: opts.MaxRetries,
		}), nil
	case models.EngineOpenAI:
		return NewOpenAIEncoder(OpenAIConfig{
			APIKey:     opts.OpenAIAPIKey,
			BaseURL:    opts.OpenAIBaseURL,
			Model:      cfg.Model,
			BatchSize:  cfg.BatchSize,
			MaxRetries: opts.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown embedding engine: %s", cfg.Engine)
	}
}

// NormalizeText flattens newlines to spaces. Embedding models treat
// newlines as significant tokens, flattening keeps scores stable across
// differently wrapped sources.
func NormalizeText(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}

// NormalizeAll applies NormalizeText to every text.
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = NormalizeText(t)
	}
	return out
}

// embedBatched splits texts into sub-batches and runs embed over them with
// bounded concurrency. Results keep input order. Any sub-batch error cancels
// the rest and fails the whole call.
func embedBatched(ctx context.Context, texts []string, batchSize, concurrency int,
	embed func(ctx context.Context, batch []string) ([][]float32, error)) ([][]float32, error) {

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	type span struct{ start, end int }
	var spans []span
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		spans = append(spans, span{start, end})
	}

	results := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, sp := range spans {
		g.Go(func() error {
			vectors, err := embed(gctx, texts[sp.start:sp.end])
			if err != nil {
				return err
			}
			if len(vectors) != sp.end-sp.start {
				return fmt.Errorf("%w: got %d vectors for %d texts",
					ErrProviderUnavailable, len(vectors), sp.end-sp.start)
			}
			copy(results[sp.start:], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
