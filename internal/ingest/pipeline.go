// ABOUTME: Ingestion pipeline from raw content to stored vector items
// ABOUTME: Hash dedup, collection write modes, all-or-nothing embedding
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/omni-webui/omni-webui/internal/embeddings"
	"github.com/omni-webui/omni-webui/internal/models"
	"github.com/omni-webui/omni-webui/internal/vector"
)

var (
	// ErrEmptyContent rejects documents with no text after cleanup.
	ErrEmptyContent = errors.New("no content to process")

	// ErrDuplicateContent rejects documents whose hash already exists in
	// the target collection.
	ErrDuplicateContent = errors.New("duplicate content detected")
)

// Mode controls what happens when the target collection already exists.
type Mode string

const (
	// ModeDefault skips ingestion entirely for existing collections.
	ModeDefault Mode = ""
	// ModeOverwrite drops the existing collection before ingesting.
	ModeOverwrite Mode = "overwrite"
	// ModeAdd merges into the existing collection, subject to hash dedup.
	ModeAdd Mode = "add"
)

// Request describes one document to ingest.
type Request struct {
	Collection string
	Name       string
	Content    string
	Metadata   models.Metadata
	Mode       Mode
}

// Result reports what a Process call did.
type Result struct {
	Collection string
	ChunkCount int
	Skipped    bool
}

// Pipeline chunks, embeds, and stores documents.
type Pipeline struct {
	store    vector.Store
	encoder  embeddings.Encoder
	splitter Splitter
	embedCfg models.EmbeddingConfig
}

// New creates a pipeline over the given store, encoder, and splitter.
func New(store vector.Store, encoder embeddings.Encoder, splitter Splitter, embedCfg models.EmbeddingConfig) *Pipeline {
	return &Pipeline{
		store:    store,
		encoder:  encoder,
		splitter: splitter,
		embedCfg: embedCfg,
	}
}

// Process ingests one document. Nothing is written until every chunk has
// been embedded, so a provider failure leaves the collection untouched.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	content := RestoreLineBreaks(req.Content)
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	hash := hashContent(content)

	if p.store.HasCollection(ctx, req.Collection) {
		// Dedup runs before any mode handling so identical content is
		// never re-embedded, not even on overwrite.
		dup, err := p.hashExists(ctx, req.Collection, hash)
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, fmt.Errorf("%w: hash %s in collection %s", ErrDuplicateContent, hash, req.Collection)
		}

		switch req.Mode {
		case ModeOverwrite:
			log.Printf("ingest: overwriting collection %s", req.Collection)
			if err := p.store.DeleteCollection(ctx, req.Collection); err != nil {
				return nil, fmt.Errorf("failed to overwrite collection %s: %w", req.Collection, err)
			}
		case ModeAdd:
		default:
			log.Printf("ingest: collection %s exists, skipping", req.Collection)
			return &Result{Collection: req.Collection, Skipped: true}, nil
		}
	}

	chunks := p.splitter.Split(content)
	if len(chunks) == 0 {
		return nil, ErrEmptyContent
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.encoder.Embed(ctx, embeddings.NormalizeAll(texts))
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks for %s: %w", len(chunks), req.Collection, err)
	}

	items := make([]models.VectorItem, len(chunks))
	for i, chunk := range chunks {
		metadata := req.Metadata.Merge(chunk.Metadata)
		metadata[models.MetaName] = req.Name
		metadata[models.MetaHash] = hash
		metadata[models.MetaEmbeddingConfig] = p.embedCfg.AuditJSON()

		items[i] = models.VectorItem{
			ID:       uuid.NewString(),
			Text:     chunk.Text,
			Vector:   vectors[i],
			Metadata: metadata,
		}
	}

	if err := p.store.Insert(ctx, req.Collection, items); err != nil {
		return nil, fmt.Errorf("failed to store %d items in %s: %w", len(items), req.Collection, err)
	}
	return &Result{Collection: req.Collection, ChunkCount: len(items)}, nil
}

// DeleteByHash removes every chunk of the document with the given content
// hash from the collection.
func (p *Pipeline) DeleteByHash(ctx context.Context, collection, hash string) error {
	return p.store.Delete(ctx, collection, nil, map[string]interface{}{
		models.MetaHash: hash,
	})
}

func (p *Pipeline) hashExists(ctx context.Context, collection, hash string) (bool, error) {
	result, err := p.store.Query(ctx, collection, map[string]interface{}{
		models.MetaHash: hash,
	}, 1)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicates in %s: %w", collection, err)
	}
	return result != nil && !result.Empty(), nil
}

// RestoreLineBreaks converts HTML break tags back to newlines. Upstream
// document loaders encode paragraph breaks as <br/> to survive transport.
func RestoreLineBreaks(content string) string {
	content = strings.ReplaceAll(content, "<br/>", "\n")
	content = strings.ReplaceAll(content, "<br />", "\n")
	return content
}

// hashContent returns the hex SHA-256 of the cleaned content.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
