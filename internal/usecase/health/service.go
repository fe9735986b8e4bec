// Package health reports process liveness and the active embedding setup.
package health

// Report is the /healthz payload. It bypasses the matching pipeline entirely.
type Report struct {
	Status        string `json:"status"`
	EmbeddingMode string `json:"embedding_mode"`
	Model         string `json:"embedding_model"`
}

// Service answers health probes.
type Service struct {
	mode  string
	model string
}

// New creates a health service. mode is "mock" or "openai", fixed at startup.
func New(mode, model string) *Service {
	return &Service{mode: mode, model: model}
}

// Check reports liveness plus the active embedding mode and model.
func (s *Service) Check() Report {
	return Report{
		Status:        "ok",
		EmbeddingMode: s.mode,
		Model:         s.model,
	}
}
