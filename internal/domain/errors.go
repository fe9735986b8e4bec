package domain

import "errors"

var (
	// ErrValidation signals malformed or out-of-range request input.
	ErrValidation = errors.New("validation failed")
	// ErrEmbeddingUnavailable signals a transient provider outage (rate limit, timeout, connectivity).
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrEmbeddingProvider signals a non-transient provider error status.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrEmbeddingShape signals a provider vector of unexpected dimensionality.
	ErrEmbeddingShape = errors.New("embedding dimension mismatch")
	// ErrSchemaNotReady signals that the volunteer store is missing required relations.
	ErrSchemaNotReady = errors.New("volunteer schema not provisioned")
	// ErrStoreUnavailable signals a volunteer store connectivity failure.
	ErrStoreUnavailable = errors.New("volunteer store unavailable")
)

// ValidationError carries the human-readable message returned to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error with a caller-facing message.
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}
