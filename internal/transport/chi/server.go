// Package chi exposes the matching pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/enturk/intelligence/internal/domain"
	healthuc "github.com/enturk/intelligence/internal/usecase/health"
)

// Error codes of the wire contract.
const (
	codeValidation        = "VALIDATION_ERROR"
	codeEmbeddingDown     = "EMBEDDING_UNAVAILABLE"
	codeEmbeddingProvider = "EMBEDDING_PROVIDER_ERROR"
	codeSchemaNotReady    = "SCHEMA_NOT_READY"
	codeDBUnavailable     = "DB_UNAVAILABLE"
	codeInternal          = "MATCHING_INTERNAL_ERROR"
)

// Matcher runs the matching pipeline.
type Matcher interface {
	Match(ctx context.Context, req domain.MatchRequest) (domain.MatchResult, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers for the matching API.
type Server struct {
	matcher       Matcher
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(matcher Matcher, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		matcher: matcher,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable,
			codeEmbeddingDown, "Embedding provider temporarily unavailable. Retry shortly."),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway,
			codeEmbeddingProvider, "Embedding provider returned an error."),
		sentinelHandler(domain.ErrSchemaNotReady, http.StatusServiceUnavailable,
			codeSchemaNotReady, "volunteer_vectors table is missing. Run database bootstrap first."),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable,
			codeDBUnavailable, "Database connection is unavailable."),
	}
	return s
}

// Register mounts the API routes.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.Healthz)
	r.Post("/api/v1/match", s.Match)
	r.Handle("/metrics", promhttp.Handler())
}

type matchMeta struct {
	EmbeddingModel string `json:"embedding_model"`
	RequestedTopK  int    `json:"requested_top_k"`
	Returned       int    `json:"returned"`
}

type matchResponse struct {
	Data []domain.VolunteerMatch `json:"data"`
	Meta matchMeta               `json:"meta"`
}

// Match handles POST /api/v1/match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var payload any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber() // ParseMatchRequest needs to tell 5 from 5.0
	if err := dec.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Request body must be a JSON object.")
		return
	}

	req, err := domain.ParseMatchRequest(payload)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	result, err := s.matcher.Match(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	data := result.Matches
	if data == nil {
		data = []domain.VolunteerMatch{}
	}

	writeJSON(w, http.StatusOK, matchResponse{
		Data: data,
		Meta: matchMeta{
			EmbeddingModel: result.Model,
			RequestedTopK:  result.RequestedTopK,
			Returned:       result.Returned,
		},
	})
}

// Healthz handles GET /healthz. It bypasses the pipeline entirely.
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Check())
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("request failed", zap.Error(err))
			return
		}
	}
	// Unanticipated failure: full context stays server-side, caller gets a generic 500.
	s.logger.Error("matching flow failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "Unexpected internal matching failure.")
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// validationHandler reports the precise validation message to the caller.
func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeError(w, http.StatusBadRequest, codeValidation, ve.Message)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, message)
		return true
	}
}
