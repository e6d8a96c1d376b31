package domain

// Confidence levels reported in page metadata.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ConditionError marks a page whose content could not be read or parsed.
const ConditionError = "error"

// EntityRecord is one extracted entity. The field set varies by category
// (people carry name/role, amounts carry value/currency/type, and so on),
// so records stay schemaless after validation.
type EntityRecord map[string]any

// ExtractedText holds the raw text recovered from one page.
type ExtractedText struct {
	RawText string `json:"raw_text"`
}

// PageMetadata describes extraction quality for one page.
type PageMetadata struct {
	Language          string   `json:"language"`
	Confidence        string   `json:"confidence"`
	DocumentCondition string   `json:"document_condition"`
	SpecialElements   []string `json:"special_elements"`
	Error             string   `json:"error,omitempty"`
}

// PageResult is the canonical per-page entity record. Error is set instead of
// full entities when the page failed at the model-call or parse boundary;
// such degraded pages are a designed outcome, not a pipeline failure.
type PageResult struct {
	PageNumber    int                       `json:"page_number"`
	DocumentType  string                    `json:"document_type"`
	Entities      map[string][]EntityRecord `json:"entities"`
	ExtractedText ExtractedText             `json:"extracted_text"`
	Metadata      PageMetadata              `json:"metadata"`
	Error         string                    `json:"error,omitempty"`
}

// PageStructuredData is the per-page slice of a DocumentResult's combined
// structured data: the page's classified type and entity mapping.
type PageStructuredData struct {
	DocumentType string                    `json:"document_type"`
	Entities     map[string][]EntityRecord `json:"entities"`
}

// CombinedText holds the merged text of all pages. StructuredData is keyed
// "page_1", "page_2", ... in page order.
type CombinedText struct {
	RawText        string                        `json:"raw_text"`
	StructuredData map[string]PageStructuredData `json:"structured_data"`
}

// DocumentMetadata describes a whole processed document. Language comes from
// the first page that reported one.
type DocumentMetadata struct {
	Language        string       `json:"language"`
	Confidence      string       `json:"confidence"`
	SpecialElements []string     `json:"special_elements"`
	PageResults     []PageResult `json:"page_results"`
}

// DocumentResult aggregates all per-page results of one document.
// The shape is identical for single- and multi-page documents: TotalPages,
// page-keyed StructuredData and PageResults are always present.
// Invariant: len(Metadata.PageResults) == number of pages segmented.
type DocumentResult struct {
	DocumentType  string           `json:"document_type"`
	TotalPages    int              `json:"total_pages"`
	ExtractedText CombinedText     `json:"extracted_text"`
	Metadata      DocumentMetadata `json:"metadata"`
}
