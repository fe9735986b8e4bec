// Package embedding holds embedder implementations and decorators that sit
// between the matching pipeline and the provider transport.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/enturk/intelligence/internal/domain"
	"github.com/enturk/intelligence/internal/metrics"
)

const mockMode = "mock"

// MockEmbedder generates deterministic offline embeddings: the SHA-256 digest
// of the input text seeds a PRNG that draws 1536 uniform values in [-1, 1],
// which are then L2-normalized. Identical text always yields an identical
// vector, so tests and degraded operation need no network access.
type MockEmbedder struct {
	model string
}

// NewMockEmbedder creates a deterministic offline embedder.
// model is the configured model identifier, reported in metrics only.
func NewMockEmbedder(model string) *MockEmbedder {
	return &MockEmbedder{model: model}
}

// Embed implements domain.Embedder.
func (m *MockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	digest := sha256.Sum256([]byte(text))
	seed := binary.BigEndian.Uint64(digest[:8])
	rng := rand.New(rand.NewSource(int64(seed))) //nolint:gosec // determinism is the point

	values := make([]float64, domain.Dimensions)
	var sumSquares float64
	for i := range values {
		v := rng.Float64()*2 - 1
		values[i] = v
		sumSquares += v * v
	}

	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		norm = 1
	}

	vector := make([]float32, domain.Dimensions)
	for i, v := range values {
		vector[i] = float32(v / norm)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(mockMode, m.model, "success").Inc()

	return domain.EmbeddingResult{Embedding: vector}, nil
}
