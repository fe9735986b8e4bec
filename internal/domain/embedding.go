package domain

import "context"

// Dimensions is the embedding vector size, matching text-embedding-3-small.
// Vectors of any other length are rejected, never truncated or padded.
const Dimensions = 1536

// Embedder is the shared text vectorization contract between layers.
// Live and mock implementations are interchangeable behind it.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
