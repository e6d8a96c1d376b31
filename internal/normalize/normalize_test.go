package normalize

import (
	"errors"
	"reflect"
	"testing"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
)

const validResponse = `{
	"document_type": "invoice",
	"entities": {
		"organizations": [{"name": "Acme Corp", "type": "company"}],
		"amounts": [{"value": "120.50", "currency": "USD", "type": "total"}]
	},
	"extracted_text": {"raw_text": "Acme Corp Invoice Total: $120.50"},
	"metadata": {
		"language": "en",
		"confidence": "high",
		"document_condition": "clear",
		"special_elements": ["tables"]
	}
}`

func TestNormalize_ValidJSON(t *testing.T) {
	n := New()

	result, err := n.Normalize(validResponse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.DocumentType != "invoice" {
		t.Errorf("expected document_type=invoice, got %q", result.DocumentType)
	}
	if len(result.Entities["organizations"]) != 1 {
		t.Errorf("expected 1 organization, got %d", len(result.Entities["organizations"]))
	}
	if result.ExtractedText.RawText != "Acme Corp Invoice Total: $120.50" {
		t.Errorf("unexpected raw_text %q", result.ExtractedText.RawText)
	}
	if result.Metadata.Language != "en" {
		t.Errorf("expected language=en, got %q", result.Metadata.Language)
	}
	if result.Metadata.Error != "" {
		t.Errorf("expected no error marker, got %q", result.Metadata.Error)
	}
}

func TestNormalize_FencedEqualsUnfenced(t *testing.T) {
	n := New()

	fenced := []string{
		"```json\n" + validResponse + "\n```",
		"```\n" + validResponse + "\n```",
		"\n  ```json\n" + validResponse + "\n```  \n",
	}

	want, err := n.Normalize(validResponse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, in := range fenced {
		got, err := n.Normalize(in)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("case %d: fenced result differs from unfenced:\ngot:  %+v\nwant: %+v", i, got, want)
		}
	}
}

func TestNormalize_MalformedDegrades(t *testing.T) {
	n := New()

	in := `Sure, here's the data: {"document_type": "inv`
	result, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("normalize must not fail on malformed input: %v", err)
	}

	if result.DocumentType != "unknown" {
		t.Errorf("expected document_type=unknown, got %q", result.DocumentType)
	}
	if len(result.Entities) != 0 {
		t.Errorf("expected empty entities, got %v", result.Entities)
	}
	if result.ExtractedText.RawText != in {
		t.Errorf("raw text must preserve the original input:\ngot:  %q\nwant: %q", result.ExtractedText.RawText, in)
	}
	if result.Metadata.Confidence != domain.ConfidenceLow {
		t.Errorf("expected confidence=low, got %q", result.Metadata.Confidence)
	}
	if result.Metadata.DocumentCondition != domain.ConditionError {
		t.Errorf("expected document_condition=error, got %q", result.Metadata.DocumentCondition)
	}
	if result.Metadata.Error == "" {
		t.Error("expected an error marker in metadata")
	}
}

func TestNormalize_DegradedIsIdempotent(t *testing.T) {
	n := New()

	first, err := n.Normalize("not json at all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := n.Normalize(first.ExtractedText.RawText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("renormalizing a degraded result changed it:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalize_SchemaMismatchDegrades(t *testing.T) {
	n := New()

	tests := []struct {
		name string
		in   string
	}{
		{"entities is a string", `{"document_type":"x","entities":"none","extracted_text":{"raw_text":""}}`},
		{"raw_text is a number", `{"document_type":"x","entities":{},"extracted_text":{"raw_text":7}}`},
		{"missing extracted_text", `{"document_type":"x","entities":{}}`},
		{"top level is an array", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := n.Normalize(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.DocumentType != "unknown" || result.Metadata.Error == "" {
				t.Errorf("expected degraded result, got %+v", result)
			}
			if result.ExtractedText.RawText != tt.in {
				t.Errorf("raw text not preserved: %q", result.ExtractedText.RawText)
			}
		})
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	n := New()

	for _, in := range []string{"", "   ", "\n\t"} {
		if _, err := n.Normalize(in); !errors.Is(err, domain.ErrEmptyResponse) {
			t.Errorf("input %q: expected ErrEmptyResponse, got %v", in, err)
		}
	}
}

func TestNormalize_MissingEntitiesKeysAllowed(t *testing.T) {
	n := New()

	result, err := n.Normalize(`{"document_type":"receipt","entities":{},"extracted_text":{"raw_text":"x"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Metadata.Error != "" {
		t.Errorf("expected success, got degraded result: %q", result.Metadata.Error)
	}
	if result.Entities == nil {
		t.Error("entities must be non-nil after normalization")
	}
}
