// ABOUTME: Shared wiring for CLI commands that need the retrieval engine
// ABOUTME: Builds the vector store, pipeline, and retriever from environment config
package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/omni-webui/omni-webui/internal/config"
	"github.com/omni-webui/omni-webui/internal/embeddings"
	"github.com/omni-webui/omni-webui/internal/ingest"
	"github.com/omni-webui/omni-webui/internal/rerank"
	"github.com/omni-webui/omni-webui/internal/retrieval"
	"github.com/omni-webui/omni-webui/internal/vector"
	"github.com/omni-webui/omni-webui/internal/vector/connector"
)

// engine bundles the wired components a command needs
type engine struct {
	cfg       *config.Config
	store     vector.Store
	pipeline  *ingest.Pipeline
	retriever *retrieval.Retriever
}

// buildEngine wires storage, embeddings, ingestion, and retrieval
// from environment configuration.
func buildEngine(ctx context.Context) (*engine, error) {
	// Load .env for API keys
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	store, err := connector.Open(ctx, connector.Options{
		Backend:      cfg.VectorDB,
		DataDir:      cfg.DataDir,
		MilvusAddr:   cfg.MilvusAddr,
		QdrantURL:    cfg.QdrantURL,
		QdrantAPIKey: cfg.QdrantAPIKey,
		Timeout:      cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	encoder, err := embeddings.New(cfg.EmbeddingConfig(), embeddings.Options{
		OpenAIAPIKey:   cfg.OpenAIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OllamaBaseURL:  cfg.OllamaBaseURL,
		LocalDimension: cfg.LocalDimension,
		MaxRetries:     cfg.MaxRetries,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building embedding engine: %w", err)
	}

	splitter, err := newSplitter(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building text splitter: %w", err)
	}

	pipeline := ingest.New(store, encoder, splitter, cfg.EmbeddingConfig())
	retriever := retrieval.New(store, encoder, newReranker(cfg, encoder), retrieval.Options{
		TopK:               cfg.TopK,
		RelevanceThreshold: cfg.RelevanceThreshold,
	})

	return &engine{cfg: cfg, store: store, pipeline: pipeline, retriever: retriever}, nil
}

func (e *engine) Close() {
	if err := e.store.Close(); err != nil && verbose {
		log.Printf("Closing vector store: %v", err)
	}
}

func newSplitter(cfg *config.Config) (ingest.Splitter, error) {
	if cfg.TextSplitter == config.SplitterToken {
		return ingest.NewTokenSplitter(cfg.TiktokenEncoding, cfg.ChunkSize, cfg.ChunkOverlap)
	}
	return ingest.NewCharacterSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
}

// newReranker picks the hybrid scorer. A remote reranking URL selects the
// cross-encoder; otherwise hybrid mode uses in-process MaxSim when the
// configured engine can produce token embeddings.
func newReranker(cfg *config.Config, encoder embeddings.Encoder) rerank.Reranker {
	if !cfg.EnableHybrid {
		return nil
	}
	if cfg.RerankingURL != "" {
		return rerank.NewCrossEncoder(rerank.CrossEncoderConfig{
			BaseURL:    cfg.RerankingURL,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
		})
	}
	if tokenEncoder, ok := encoder.(rerank.TokenEncoder); ok {
		return rerank.NewLateInteraction(tokenEncoder)
	}
	if !quiet {
		log.Printf("Hybrid search enabled but no reranker available, staying dense-only")
	}
	return nil
}
