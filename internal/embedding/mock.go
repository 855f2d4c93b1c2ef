package embedding

import (
	"context"

	"github.com/hyperjump/gijiroku/pkg/utils"
)

// MockEmbedder is a deterministic bag-of-words embedder for tests and offline
// use. Each lower-cased word is hashed into a bucket, so texts sharing words
// get similar vectors and identical texts get identical vectors.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a unit vector of hashed word counts.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, w := range NormalizedWords(text) {
		h := HashString(w)
		emb[h%e.dimensions] += 1
		// a second, signed bucket spreads collisions
		if h%2 == 0 {
			emb[(h/7)%e.dimensions] += 0.5
		} else {
			emb[(h/7)%e.dimensions] -= 0.5
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
