package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/enturk/intelligence/internal/domain"
	healthuc "github.com/enturk/intelligence/internal/usecase/health"
)

type mockMatcher struct {
	result  domain.MatchResult
	err     error
	called  bool
	lastReq domain.MatchRequest
}

func (m *mockMatcher) Match(_ context.Context, req domain.MatchRequest) (domain.MatchResult, error) {
	m.called = true
	m.lastReq = req
	return m.result, m.err
}

func newTestRouter(matcher *mockMatcher) *gochi.Mux {
	server := NewServer(matcher, healthuc.New("mock", "text-embedding-3-small"), zap.NewNop())
	r := gochi.NewRouter()
	r.Use(CORSMiddleware())
	server.Register(r)
	return r
}

func doMatch(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errEnvelope {
	t.Helper()
	var e errEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func TestMatch_Success(t *testing.T) {
	matcher := &mockMatcher{
		result: domain.MatchResult{
			Matches: []domain.VolunteerMatch{
				{VolunteerID: "v-1", FullName: "Ada", Email: "ada@example.org", SkillSummary: "go, sql", CosineSimilarity: 0.91},
				{VolunteerID: "v-2", FullName: "Grace", Email: "grace@example.org", SkillSummary: "python", CosineSimilarity: 0.87},
			},
			Model:         "text-embedding-3-small",
			RequestedTopK: 3,
			Returned:      2,
		},
	}
	r := newTestRouter(matcher)

	w := doMatch(t, r, `{"projectDescription": "Experienced backend engineer available for three months", "topK": 3}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	var resp struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			EmbeddingModel string `json:"embedding_model"`
			RequestedTopK  int    `json:"requested_top_k"`
			Returned       int    `json:"returned"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Data) != 2 {
		t.Errorf("data length = %d, expected 2", len(resp.Data))
	}
	if resp.Meta.RequestedTopK != 3 {
		t.Errorf("meta.requested_top_k = %d, expected 3", resp.Meta.RequestedTopK)
	}
	if resp.Meta.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("meta.embedding_model = %q", resp.Meta.EmbeddingModel)
	}
	if resp.Data[0]["volunteer_id"] != "v-1" {
		t.Errorf("first match = %v", resp.Data[0])
	}
	if sim, ok := resp.Data[0]["cosine_similarity"].(float64); !ok || sim < 0 || sim > 1 {
		t.Errorf("cosine_similarity = %v", resp.Data[0]["cosine_similarity"])
	}
	if matcher.lastReq.TopK() != 3 {
		t.Errorf("pipeline received topK=%d, expected 3", matcher.lastReq.TopK())
	}
}

func TestMatch_EmptyResultKeepsDataArray(t *testing.T) {
	matcher := &mockMatcher{result: domain.MatchResult{Model: "m", RequestedTopK: 5}}
	r := newTestRouter(matcher)

	w := doMatch(t, r, `{"projectDescription": "Experienced backend engineer available for three months"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", w.Body.String())
	}
}

func TestMatch_InvalidJSON(t *testing.T) {
	matcher := &mockMatcher{}
	r := newTestRouter(matcher)

	w := doMatch(t, r, `{not json`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", w.Code)
	}
	e := decodeError(t, w)
	if e.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", e.Error.Code)
	}
	if matcher.called {
		t.Error("pipeline must not run on invalid input")
	}
}

func TestMatch_ValidationFailureHasNoSideEffects(t *testing.T) {
	cases := map[string]string{
		"array body":          `[1, 2, 3]`,
		"missing description": `{"topK": 3}`,
		"short description":   `{"projectDescription": "   hi  there  "}`,
		"topK zero":           `{"projectDescription": "Experienced backend engineer available for three months", "topK": 0}`,
		"topK too large":      `{"projectDescription": "Experienced backend engineer available for three months", "topK": 21}`,
		"topK string":         `{"projectDescription": "Experienced backend engineer available for three months", "topK": "5"}`,
		"topK fractional":     `{"projectDescription": "Experienced backend engineer available for three months", "topK": 2.5}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			matcher := &mockMatcher{}
			r := newTestRouter(matcher)

			w := doMatch(t, r, body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, expected 400: %s", w.Code, w.Body.String())
			}
			if e := decodeError(t, w); e.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("code = %q", e.Error.Code)
			}
			if matcher.called {
				t.Error("pipeline must not run on invalid input")
			}
		})
	}
}

func TestMatch_ErrorTaxonomyMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"embedding unavailable", domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, "EMBEDDING_UNAVAILABLE"},
		{"embedding provider", domain.ErrEmbeddingProvider, http.StatusBadGateway, "EMBEDDING_PROVIDER_ERROR"},
		{"schema not ready", domain.ErrSchemaNotReady, http.StatusServiceUnavailable, "SCHEMA_NOT_READY"},
		{"store unavailable", domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "DB_UNAVAILABLE"},
		{"shape mismatch", domain.ErrEmbeddingShape, http.StatusInternalServerError, "MATCHING_INTERNAL_ERROR"},
		{"unanticipated", errors.New("boom"), http.StatusInternalServerError, "MATCHING_INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matcher := &mockMatcher{err: fmt.Errorf("embed description: %w", tc.err)}
			r := newTestRouter(matcher)

			w := doMatch(t, r, `{"projectDescription": "Experienced backend engineer available for three months"}`)

			if w.Code != tc.status {
				t.Fatalf("status = %d, expected %d", w.Code, tc.status)
			}
			if e := decodeError(t, w); e.Error.Code != tc.code {
				t.Errorf("code = %q, expected %q", e.Error.Code, tc.code)
			}
		})
	}
}

func TestMatch_SchemaNeverReportedAsDBUnavailable(t *testing.T) {
	matcher := &mockMatcher{err: fmt.Errorf("query nearest: relation: %w", domain.ErrSchemaNotReady)}
	r := newTestRouter(matcher)

	w := doMatch(t, r, `{"projectDescription": "Experienced backend engineer available for three months"}`)

	e := decodeError(t, w)
	if e.Error.Code != "SCHEMA_NOT_READY" {
		t.Fatalf("code = %q, expected SCHEMA_NOT_READY", e.Error.Code)
	}
}

func TestPreflight(t *testing.T) {
	r := newTestRouter(&mockMatcher{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/match", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, expected 204", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty preflight body, got %q", w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET,POST,OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type,Authorization" {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(&mockMatcher{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}

	var report struct {
		Status        string `json:"status"`
		EmbeddingMode string `json:"embedding_mode"`
		Model         string `json:"embedding_model"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != "ok" || report.EmbeddingMode != "mock" || report.Model != "text-embedding-3-small" {
		t.Errorf("unexpected report: %+v", report)
	}
}
