// ABOUTME: Tests for the in-process hashed embedding engine
// ABOUTME: Determinism and similarity ordering are the load-bearing properties
package embeddings

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalEncoderDeterministic(t *testing.T) {
	encoder := NewLocalEncoder(64)
	ctx := context.Background()

	first, err := encoder.Embed(ctx, []string{"the quick brown fox"})
	if err != nil {
		t.Fatalf("Failed to embed: %v", err)
	}
	second, err := encoder.Embed(ctx, []string{"the quick brown fox"})
	if err != nil {
		t.Fatalf("Failed to embed: %v", err)
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("Expected identical vectors, differ at %d", i)
		}
	}
}

func TestLocalEncoderDimensionAndNorm(t *testing.T) {
	encoder := NewLocalEncoder(0)
	if encoder.Dimension() != DefaultLocalDimension {
		t.Errorf("Expected default dimension %d, got %d", DefaultLocalDimension, encoder.Dimension())
	}

	vectors, err := encoder.Embed(context.Background(), []string{"hello world"})
	if err != nil {
		t.Fatalf("Failed to embed: %v", err)
	}
	if len(vectors[0]) != DefaultLocalDimension {
		t.Fatalf("Expected %d-wide vector, got %d", DefaultLocalDimension, len(vectors[0]))
	}

	var norm float64
	for _, x := range vectors[0] {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("Expected unit norm, got %f", norm)
	}
}

func TestLocalEncoderSimilarityOrdering(t *testing.T) {
	encoder := NewLocalEncoder(256)
	ctx := context.Background()

	vectors, err := encoder.Embed(ctx, []string{
		"the quick brown fox jumps",
		"the quick brown fox leaps",
		"stock market quarterly earnings report",
	})
	if err != nil {
		t.Fatalf("Failed to embed: %v", err)
	}

	near := cosine(vectors[0], vectors[1])
	far := cosine(vectors[0], vectors[2])
	if near <= far {
		t.Errorf("Expected related texts closer (%f) than unrelated (%f)", near, far)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Hello, World! 42nd")
	want := []string{"hello", "world", "42nd"}
	if len(tokens) != len(want) {
		t.Fatalf("Expected %v, got %v", want, tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("Expected token %q, got %q", want[i], tokens[i])
		}
	}
}

func TestEmbedTokensOneRowPerToken(t *testing.T) {
	encoder := NewLocalEncoder(64)
	rows, err := encoder.EmbedTokens(context.Background(), "alpha beta gamma")
	if err != nil {
		t.Fatalf("Failed to embed tokens: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 token rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 64 {
			t.Errorf("Expected 64-wide row at %d, got %d", i, len(row))
		}
	}
}
