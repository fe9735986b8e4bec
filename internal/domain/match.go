package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MinDescriptionLen is the minimum description length after whitespace normalization.
	MinDescriptionLen = 20
	// MaxTopK bounds the caller-requested candidate count.
	MaxTopK = 20
	// DefaultTopK is used when the payload omits topK.
	DefaultTopK = 5
)

// MatchRequest is a validated, normalized matching request. Immutable once built.
type MatchRequest struct {
	description string
	topK        int
}

// Description returns the whitespace-normalized project description.
func (r MatchRequest) Description() string { return r.description }

// TopK returns the requested candidate count.
func (r MatchRequest) TopK() int { return r.topK }

// ParseMatchRequest validates a decoded JSON payload and builds a MatchRequest.
// Numbers in the payload must be json.Number (decode with UseNumber) so that
// non-integer topK values are distinguishable from integers.
// Every failure is a *ValidationError with a caller-facing message.
func ParseMatchRequest(payload any) (MatchRequest, error) {
	obj, ok := payload.(map[string]any)
	if !ok || obj == nil {
		return MatchRequest{}, NewValidationError("Request body must be a JSON object.")
	}

	// camelCase takes precedence; an absent or empty value falls through to snake_case.
	raw := obj["projectDescription"]
	if raw == nil || raw == "" {
		raw = obj["project_description"]
	}

	description, ok := raw.(string)
	if !ok {
		return MatchRequest{}, NewValidationError("projectDescription must be a string.")
	}

	normalized := strings.Join(strings.Fields(description), " ")
	if utf8.RuneCountInString(normalized) < MinDescriptionLen {
		return MatchRequest{}, NewValidationError("projectDescription must be at least 20 characters.")
	}

	topK := DefaultTopK
	if v, present := obj["topK"]; present {
		k, ok := integerFrom(v)
		if !ok || k < 1 || k > MaxTopK {
			return MatchRequest{}, NewValidationError("topK must be an integer between 1 and 20.")
		}
		topK = k
	}

	return MatchRequest{description: normalized, topK: topK}, nil
}

// integerFrom extracts an integer from a decoded JSON value.
// json.Number values with a fractional or exponent part are not integers.
func integerFrom(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if strings.ContainsAny(n.String(), ".eE") {
			return 0, false
		}
		i, err := strconv.Atoi(n.String())
		if err != nil {
			return 0, false
		}
		return i, true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// VolunteerMatch is one ranked query result. Field names follow the wire format.
type VolunteerMatch struct {
	VolunteerID      string  `json:"volunteer_id"`
	FullName         string  `json:"full_name"`
	Email            string  `json:"email"`
	SkillSummary     string  `json:"skill_summary"`
	CosineSimilarity float64 `json:"cosine_similarity"`
}

// MatchResult is the assembled pipeline output: ranked matches plus response metadata.
type MatchResult struct {
	Matches       []VolunteerMatch
	Model         string
	RequestedTopK int
	Returned      int
}
