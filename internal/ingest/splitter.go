// ABOUTME: Text splitters that window documents into overlapping chunks
// ABOUTME: Character windows over runes, token windows via tiktoken encodings
package ingest

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/omni-webui/omni-webui/internal/models"
)

// Default chunking parameters.
const (
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 100
	DefaultTiktokenEncoding = "cl100k_base"
)

// Splitter cuts a document into chunks carrying their start offsets.
type Splitter interface {
	Split(text string) []models.Chunk
}

// CharacterSplitter windows text by rune count. Every chunk except the last
// has exactly chunkSize runes, and consecutive chunks share chunkOverlap
// runes.
type CharacterSplitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewCharacterSplitter creates a rune-window splitter.
func NewCharacterSplitter(chunkSize, chunkOverlap int) (*CharacterSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &CharacterSplitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split windows the text into chunks. Start offsets count runes.
func (s *CharacterSplitter) Split(text string) []models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.chunkSize - s.chunkOverlap
	var chunks []models.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, models.Chunk{
			Text: string(runes[start:end]),
			Metadata: models.Metadata{
				models.MetaStartIndex: start,
			},
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// TokenSplitter windows text by token count using a tiktoken encoding.
// Chunk boundaries land on token boundaries, so decoded chunks concatenate
// back to the original text when overlap is zero.
type TokenSplitter struct {
	encoding     *tiktoken.Tiktoken
	chunkSize    int
	chunkOverlap int
}

// NewTokenSplitter creates a token-window splitter for the named encoding.
func NewTokenSplitter(encodingName string, chunkSize, chunkOverlap int) (*TokenSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	if encodingName == "" {
		encodingName = DefaultTiktokenEncoding
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %s: %w", encodingName, err)
	}
	return &TokenSplitter{
		encoding:     encoding,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Split windows the text into chunks. Start offsets count tokens.
func (s *TokenSplitter) Split(text string) []models.Chunk {
	tokens := s.encoding.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	step := s.chunkSize - s.chunkOverlap
	var chunks []models.Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + s.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, models.Chunk{
			Text: s.encoding.Decode(tokens[start:end]),
			Metadata: models.Metadata{
				models.MetaStartIndex: start,
			},
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
