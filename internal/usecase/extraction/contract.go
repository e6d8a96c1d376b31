package extraction

import (
	"context"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
)

// Segmenter converts a document into its ordered page images.
type Segmenter interface {
	Segment(ctx context.Context, doc domain.Document) ([]domain.PageImage, error)
}

// ModelClient sends one page to the remote model and returns its raw output.
type ModelClient interface {
	Extract(
		ctx context.Context,
		page domain.PageImage,
		contract domain.ExtractionContract,
		cred domain.Credential,
	) (string, error)
}

// Normalizer parses raw model output into the canonical page schema.
type Normalizer interface {
	Normalize(raw string) (domain.PageResult, error)
}

// CredentialSource supplies a valid bearer credential, refreshing as needed.
type CredentialSource interface {
	Credential(ctx context.Context) (domain.Credential, error)
}

// Processor runs the full document-to-entities pipeline. Implemented by
// Service and by the caching decorator wrapped around it.
type Processor interface {
	Process(ctx context.Context, doc domain.Document) (domain.DocumentResult, error)
}
