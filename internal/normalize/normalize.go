// Package normalize turns raw model output into the canonical entity schema,
// tolerating the fenced and malformed JSON a language model routinely returns.
package normalize

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
)

//go:embed schema.json
var pageResultSchema string

// parseError is the metadata marker recorded on a degraded result.
const parseError = "Failed to parse response as JSON"

// Normalizer parses raw model responses. The zero cost of construction hides
// a compiled JSON Schema shared by all calls.
type Normalizer struct {
	schema *jsonschema.Schema
}

// New creates a normalizer with the canonical page schema compiled.
func New() *Normalizer {
	return &Normalizer{schema: jsonschema.MustCompileString("page_result.json", pageResultSchema)}
}

// Normalize converts one raw model response into a PageResult.
//
// The pipeline is: trim, strip code fences, strict parse, validate. Malformed
// output never propagates as an error: it produces a degraded PageResult that
// preserves the raw text. Only empty input fails, wrapping domain.ErrEmptyResponse.
func (n *Normalizer) Normalize(raw string) (domain.PageResult, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.PageResult{}, fmt.Errorf("nothing to normalize: %w", domain.ErrEmptyResponse)
	}

	result, ok := n.parse(stripFences(trimmed))
	if !ok {
		return degraded(trimmed), nil
	}
	return result, nil
}

// parse attempts strict structured parsing plus schema validation.
func (n *Normalizer) parse(text string) (domain.PageResult, bool) {
	// Validate against the schema first: it operates on the generic decoded
	// value, and catches shapes (entities as a string, raw_text as a number)
	// that would otherwise half-fill the typed struct.
	var generic any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return domain.PageResult{}, false
	}
	if err := n.schema.Validate(generic); err != nil {
		return domain.PageResult{}, false
	}

	var result domain.PageResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return domain.PageResult{}, false
	}
	if result.Entities == nil {
		result.Entities = map[string][]domain.EntityRecord{}
	}
	return result, true
}

// stripFences removes a leading ``` marker (with optional json language tag)
// and a trailing ``` marker. The model is instructed to return pure JSON but
// frequently wraps it anyway.
func stripFences(text string) string {
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// degraded builds the designed fallback for unparseable output: no entities,
// but no information lost either.
func degraded(raw string) domain.PageResult {
	return domain.PageResult{
		DocumentType:  "unknown",
		Entities:      map[string][]domain.EntityRecord{},
		ExtractedText: domain.ExtractedText{RawText: raw},
		Metadata: domain.PageMetadata{
			Language:          "unknown",
			Confidence:        domain.ConfidenceLow,
			DocumentCondition: domain.ConditionError,
			SpecialElements:   []string{},
			Error:             parseError,
		},
	}
}
