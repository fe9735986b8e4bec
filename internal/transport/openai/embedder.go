// Package openai adapts the OpenAI embeddings API to the domain Embedder contract.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/enturk/intelligence/internal/domain"
	"github.com/enturk/intelligence/internal/metrics"
)

const mode = "openai"

// Embedder is the live embedding provider.
type Embedder struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   openai.EmbeddingModel(cfg.Model),
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Embed implements domain.Embedder. The returned vector is always exactly
// domain.Dimensions long; any other provider response is a shape error.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(mode, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(mode, string(e.model), "api_error").Inc()
		return domain.EmbeddingResult{}, categorize(err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(mode, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(mode, string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProvider)
	}

	vector := resp.Data[0].Embedding
	if len(vector) != domain.Dimensions {
		metrics.EmbeddingRequestsTotal.WithLabelValues(mode, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(mode, string(e.model), "shape_mismatch").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf(
			"expected %d-dimensional embedding, got %d: %w",
			domain.Dimensions, len(vector), domain.ErrEmbeddingShape,
		)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(mode, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(mode, string(e.model)).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(mode, string(e.model), "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(mode, string(e.model), "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vector,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// categorize translates client-library errors into the domain taxonomy at this
// single boundary. Rate limits, timeouts, and connectivity failures are
// transient (retry after a delay); other provider statuses are not.
func categorize(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return fmt.Errorf("embedding API rate limited: %w", domain.ErrEmbeddingUnavailable)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbeddingProvider)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 429 {
			return fmt.Errorf("embedding API rate limited: %w", domain.ErrEmbeddingUnavailable)
		}
		return fmt.Errorf("embedding API error %d: %w",
			reqErr.HTTPStatusCode, domain.ErrEmbeddingProvider)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("embedding request timed out: %w", domain.ErrEmbeddingUnavailable)
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return fmt.Errorf("embedding provider unreachable: %w", domain.ErrEmbeddingUnavailable)
	}

	return fmt.Errorf("embedding request failed: %w", domain.ErrEmbeddingUnavailable)
}
