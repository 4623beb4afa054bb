// ABOUTME: Chunk is a bounded slice of a source document prepared for embedding
// ABOUTME: Produced by the text splitters and consumed by the ingestion pipeline
package models

// Chunk is an immutable piece of source text plus its provenance metadata.
// The metadata carries source name, file id, content hash and the start
// offset of the chunk within the original document.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}
