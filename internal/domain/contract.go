package domain

import (
	_ "embed"
	"strings"
)

// defaultSystemPrompt is the versioned entity taxonomy instruction. It is
// configuration data, not code: deployments may override it via a prompt file.
//
//go:embed prompt.txt
var defaultSystemPrompt string

// DefaultSystemPrompt returns the built-in extraction taxonomy instruction.
func DefaultSystemPrompt() string {
	return strings.TrimSpace(defaultSystemPrompt)
}

// UserDirective is the short per-page instruction sent alongside the image.
const UserDirective = "Extract all entities from this document image."

// ExtractionContract is the fixed instruction payload sent with every page.
// Process-wide and immutable: loaded once at startup, only the embedded page
// image varies between requests.
type ExtractionContract struct {
	SystemPrompt     string
	ModelID          string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}
