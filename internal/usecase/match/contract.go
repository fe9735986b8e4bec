package match

import (
	"context"

	"github.com/enturk/intelligence/internal/domain"
)

// Embedder vectorizes the project description.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VolunteerSearcher retrieves the k nearest active volunteers by cosine distance.
type VolunteerSearcher interface {
	QueryNearest(ctx context.Context, vector []float32, k int) ([]domain.VolunteerMatch, error)
}
