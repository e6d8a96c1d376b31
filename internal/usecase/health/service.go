// Package health reports service readiness and the effective model settings.
package health

import "github.com/celiksa/ocr-entity-extraction/internal/domain"

// ModelInfo is the model configuration echoed by the health endpoint.
type ModelInfo struct {
	ModelID     string  `json:"model_id"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// Report is the health endpoint payload.
type Report struct {
	Status            string    `json:"status"`
	WatsonxConfigured bool      `json:"watsonx_configured"`
	ModelConfig       ModelInfo `json:"model_config"`
}

// Service answers health checks.
type Service struct {
	configured bool
	model      ModelInfo
}

// New creates a health service. configured reports whether a remote API key
// is present.
func New(configured bool, contract domain.ExtractionContract) *Service {
	return &Service{
		configured: configured,
		model: ModelInfo{
			ModelID:     contract.ModelID,
			MaxTokens:   contract.MaxTokens,
			Temperature: contract.Temperature,
			TopP:        contract.TopP,
		},
	}
}

// Check returns the current health report.
func (s *Service) Check() Report {
	return Report{
		Status:            "healthy",
		WatsonxConfigured: s.configured,
		ModelConfig:       s.model,
	}
}
