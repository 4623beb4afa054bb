// ABOUTME: EmbeddingConfig identifies which embedding engine and model produced a vector
// ABOUTME: Stamped into chunk metadata at ingestion time for later audits
package models

import (
	"encoding/json"
	"fmt"
)

// EmbeddingEngine selects one of the interchangeable embedding providers.
type EmbeddingEngine string

const (
	// EngineLocal runs the resident in-process encoder.
	EngineLocal EmbeddingEngine = "local"
	// EngineOllama calls a self-hosted Ollama server over HTTP.
	EngineOllama EmbeddingEngine = "ollama"
	// EngineOpenAI calls the OpenAI embeddings API.
	EngineOpenAI EmbeddingEngine = "openai"
)

// EmbeddingConfig describes how text is turned into vectors. It is recorded
// as chunk metadata so audits can tell which function produced a vector; it
// is not part of the VectorItem identity.
type EmbeddingConfig struct {
	Engine    EmbeddingEngine `json:"engine"`
	Model     string          `json:"model"`
	BatchSize int             `json:"batch_size"`
}

// Validate checks the engine is known and the batch size usable.
func (c EmbeddingConfig) Validate() error {
	switch c.Engine {
	case EngineLocal, EngineOllama, EngineOpenAI:
	default:
		return fmt.Errorf("unknown embedding engine %q", c.Engine)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// AuditJSON returns the engine and model as a JSON string, the form stored
// under the embedding_config metadata key.
func (c EmbeddingConfig) AuditJSON() string {
	data, err := json.Marshal(map[string]string{
		"engine": string(c.Engine),
		"model":  c.Model,
	})
	if err != nil {
		return "{}"
	}
	return string(data)
}
