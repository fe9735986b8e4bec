// Package match orchestrates the matching pipeline: embed the description,
// query the volunteer store, shape the ranked response.
package match

import (
	"context"
	"fmt"

	"github.com/enturk/intelligence/internal/domain"
)

// MaxReturned is the hard response ceiling. Intentionally independent of topK:
// topK controls how many candidates the store considers, the response never
// carries more than 5.
const MaxReturned = 5

// Service runs the matching pipeline over injected collaborators.
type Service struct {
	embedder   Embedder
	volunteers VolunteerSearcher
	model      string
}

// New creates a matching service. model is the embedding model identifier
// reported in response metadata.
func New(embedder Embedder, volunteers VolunteerSearcher, model string) *Service {
	return &Service{embedder: embedder, volunteers: volunteers, model: model}
}

// Match embeds the request description, queries the nearest volunteers, and
// assembles the capped, ranked result. Each invocation issues at most one
// embedding call and one store query; failures surface immediately with their
// taxonomy kind — no retries.
func (s *Service) Match(ctx context.Context, req domain.MatchRequest) (domain.MatchResult, error) {
	embedding, err := s.embedder.Embed(ctx, req.Description())
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("embed description: %w", err)
	}

	matches, err := s.volunteers.QueryNearest(ctx, embedding.Embedding, req.TopK())
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("query volunteers: %w", err)
	}

	if len(matches) > MaxReturned {
		matches = matches[:MaxReturned]
	}

	return domain.MatchResult{
		Matches:       matches,
		Model:         s.model,
		RequestedTopK: req.TopK(),
		Returned:      len(matches),
	}, nil
}
