// ABOUTME: Centralized configuration for the retrieval engine
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/omni-webui/omni-webui/internal/models"
)

// Config holds all configuration for the retrieval system
type Config struct {
	// Vector store settings
	VectorDB     string
	DataDir      string
	MilvusAddr   string
	QdrantURL    string
	QdrantAPIKey string

	// Embedding settings
	EmbeddingEngine    string
	EmbeddingModel     string
	EmbeddingBatchSize int
	LocalDimension     int
	OpenAIKey          string
	OpenAIBaseURL      string
	OllamaBaseURL      string

	// Chunking settings
	TextSplitter     string
	ChunkSize        int
	ChunkOverlap     int
	TiktokenEncoding string

	// Retrieval settings
	TopK               int
	RelevanceThreshold float64
	EnableHybrid       bool
	RerankingURL       string
	RerankingModel     string

	// Client settings
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Splitter names accepted by TextSplitter.
const (
	SplitterCharacter = "character"
	SplitterToken     = "token"
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		VectorDB:     getEnv("VECTOR_DB", "bolt"),
		DataDir:      getEnv("DATA_DIR", defaultDataDir()),
		MilvusAddr:   getEnv("MILVUS_URI", "localhost:19530"),
		QdrantURL:    getEnv("QDRANT_URI", ""),
		QdrantAPIKey: os.Getenv("QDRANT_API_KEY"),

		EmbeddingEngine:    getEnv("RAG_EMBEDDING_ENGINE", string(models.EngineLocal)),
		EmbeddingModel:     getEnv("RAG_EMBEDDING_MODEL", "hashed"),
		EmbeddingBatchSize: getEnvInt("RAG_EMBEDDING_BATCH_SIZE", 32),
		LocalDimension:     getEnvInt("RAG_LOCAL_DIMENSION", 384),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      getEnv("OPENAI_API_BASE_URL", ""),
		OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),

		TextSplitter:     getEnv("TEXT_SPLITTER", SplitterCharacter),
		ChunkSize:        getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 100),
		TiktokenEncoding: getEnv("TIKTOKEN_ENCODING", "cl100k_base"),

		TopK:               getEnvInt("RAG_TOP_K", 3),
		RelevanceThreshold: getEnvFloat("RAG_RELEVANCE_THRESHOLD", 0.0),
		EnableHybrid:       getEnvBool("ENABLE_HYBRID_SEARCH", false),
		RerankingURL:       getEnv("RAG_RERANKING_URL", ""),
		RerankingModel:     getEnv("RAG_RERANKING_MODEL", ""),

		Timeout:    getEnvDuration("CLIENT_TIMEOUT", 30*time.Second),
		MaxRetries: getEnvInt("CLIENT_MAX_RETRIES", 3),
		RetryDelay: getEnvDuration("CLIENT_RETRY_DELAY", 2*time.Second),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.TextSplitter {
	case SplitterCharacter, SplitterToken:
	default:
		return fmt.Errorf("TEXT_SPLITTER must be character or token, got %q", c.TextSplitter)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("RAG_TOP_K must be positive, got %d", c.TopK)
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("RAG_RELEVANCE_THRESHOLD must be 0-1, got %f", c.RelevanceThreshold)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("CLIENT_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.EmbeddingEngine == string(models.EngineOpenAI) && c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the openai embedding engine")
	}
	return nil
}

// EmbeddingConfig returns the embedding settings in the form the pipeline
// stamps into chunk metadata.
func (c *Config) EmbeddingConfig() models.EmbeddingConfig {
	return models.EmbeddingConfig{
		Engine:    models.EmbeddingEngine(c.EmbeddingEngine),
		Model:     c.EmbeddingModel,
		BatchSize: c.EmbeddingBatchSize,
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "omni-webui")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".omni-webui"
	}
	return filepath.Join(home, ".local", "share", "omni-webui")
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
