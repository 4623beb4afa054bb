// ABOUTME: In-process embedding engine using hashed bag-of-words features
// ABOUTME: Deterministic and dependency-free, also provides per-token vectors
package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/omni-webui/omni-webui/internal/device"
)

// DefaultLocalDimension is the vector width when none is configured.
const DefaultLocalDimension = 384

// LocalEncoder embeds text by hashing tokens into a fixed-width feature
// space and L2-normalizing the result. Identical texts always produce
// identical vectors, which the ingestion dedup path relies on.
type LocalEncoder struct {
	dim    int
	device string
}

// NewLocalEncoder creates a local encoder with the given dimension.
func NewLocalEncoder(dim int) *LocalEncoder {
	if dim <= 0 {
		dim = DefaultLocalDimension
	}
	return &LocalEncoder{dim: dim, device: device.Select()}
}

// Dimension returns the vector width.
func (e *LocalEncoder) Dimension() int {
	return e.dim
}

// Embed encodes each text into one normalized vector.
func (e *LocalEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.encode(text)
	}
	return vectors, nil
}

// EmbedTokens encodes each token of the text separately, for
// late-interaction scoring. The result has one row per token.
func (e *LocalEncoder) EmbedTokens(ctx context.Context, text string) ([][]float32, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		tokens = []string{""}
	}
	rows := make([][]float32, len(tokens))
	for i, token := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows[i] = e.encodeTokens([]string{token})
	}
	return rows, nil
}

func (e *LocalEncoder) encode(text string) []float32 {
	return e.encodeTokens(Tokenize(text))
}

// encodeTokens hashes each token into a bucket with a hash-derived sign,
// then L2-normalizes. Token bigrams are added so word order contributes.
func (e *LocalEncoder) encodeTokens(tokens []string) []float32 {
	v := make([]float32, e.dim)
	add := func(feature string) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dim))
		sign := float32(1)
		if (sum>>63)&1 == 1 {
			sign = -1
		}
		v[bucket] += sign
	}

	for i, token := range tokens {
		add(token)
		if i > 0 {
			add(tokens[i-1] + " " + token)
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= inv
		}
	}
	return v
}

// Tokenize lowercases and splits on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
