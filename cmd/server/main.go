// ABOUTME: Main entry point for the retrieval MCP server with stdio transport
// ABOUTME: Wires the vector store, pipeline, and retriever into MCP tools
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/omni-webui/omni-webui/internal/config"
	"github.com/omni-webui/omni-webui/internal/embeddings"
	"github.com/omni-webui/omni-webui/internal/ingest"
	"github.com/omni-webui/omni-webui/internal/mcp"
	"github.com/omni-webui/omni-webui/internal/rerank"
	"github.com/omni-webui/omni-webui/internal/retrieval"
	"github.com/omni-webui/omni-webui/internal/vector/connector"
)

func main() {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	store, err := connector.Open(ctx, connector.Options{
		Backend:      cfg.VectorDB,
		DataDir:      cfg.DataDir,
		MilvusAddr:   cfg.MilvusAddr,
		QdrantURL:    cfg.QdrantURL,
		QdrantAPIKey: cfg.QdrantAPIKey,
		Timeout:      cfg.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to open vector store: %v", err)
	}
	defer store.Close()

	encoder, err := embeddings.New(cfg.EmbeddingConfig(), embeddings.Options{
		OpenAIAPIKey:   cfg.OpenAIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OllamaBaseURL:  cfg.OllamaBaseURL,
		LocalDimension: cfg.LocalDimension,
		MaxRetries:     cfg.MaxRetries,
	})
	if err != nil {
		log.Fatalf("Failed to build embedding engine: %v", err)
	}

	splitter, err := newSplitter(cfg)
	if err != nil {
		log.Fatalf("Failed to build text splitter: %v", err)
	}
	pipeline := ingest.New(store, encoder, splitter, cfg.EmbeddingConfig())

	reranker := newReranker(cfg, encoder)
	retriever := retrieval.New(store, encoder, reranker, retrieval.Options{
		TopK:               cfg.TopK,
		RelevanceThreshold: cfg.RelevanceThreshold,
	})

	server := mcpserver.NewMCPServer(
		"Retrieval Engine",
		"0.1.0",
	)
	mcp.RegisterTools(server, store, pipeline, retriever)

	log.Printf("Retrieval MCP server starting on stdio (backend=%s, state=%s)...",
		cfg.VectorDB, retriever.State())
	if err := mcpserver.ServeStdio(server); err != nil {
		log.Fatalf("Server error: %v", err)
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
	log.Printf("Hybrid search enabled but no reranker available, staying dense-only")
	return nil
}
