// Package extraction drives the document-to-entities pipeline: segmentation,
// per-page model calls, normalization and result aggregation.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
	"github.com/celiksa/ocr-entity-extraction/internal/logger"
	"github.com/celiksa/ocr-entity-extraction/internal/metrics"
)

// Service aggregates per-page extraction into a document-level result.
type Service struct {
	segmenter  Segmenter
	client     ModelClient
	normalizer Normalizer
	creds      CredentialSource
	contract   domain.ExtractionContract
}

// New creates the pipeline service. The contract is fixed for the process
// lifetime; only the page image varies between calls.
func New(
	segmenter Segmenter,
	client ModelClient,
	normalizer Normalizer,
	creds CredentialSource,
	contract domain.ExtractionContract,
) *Service {
	return &Service{
		segmenter:  segmenter,
		client:     client,
		normalizer: normalizer,
		creds:      creds,
		contract:   contract,
	}
}

// Process runs the pipeline over every page of a document, strictly in page
// order. A failure at the model-call or parse step of one page is converted
// into a per-page error record and does not abort the remaining pages; a
// segmentation or credential failure aborts the whole request.
func (s *Service) Process(ctx context.Context, doc domain.Document) (domain.DocumentResult, error) {
	pages, err := s.segmenter.Segment(ctx, doc)
	if err != nil {
		metrics.DocumentsProcessedTotal.WithLabelValues(string(doc.Kind), "error").Inc()
		return domain.DocumentResult{}, fmt.Errorf("segment document: %w", err)
	}
	if len(pages) == 0 {
		metrics.DocumentsProcessedTotal.WithLabelValues(string(doc.Kind), "error").Inc()
		return domain.DocumentResult{}, fmt.Errorf("document produced no pages: %w", domain.ErrSegmentation)
	}

	// One credential for the whole document, obtained before any page call so
	// an auth failure aborts the request without burning model quota.
	cred, err := s.creds.Credential(ctx)
	if err != nil {
		metrics.DocumentsProcessedTotal.WithLabelValues(string(doc.Kind), "error").Inc()
		return domain.DocumentResult{}, fmt.Errorf("obtain credential: %w", err)
	}

	log := logger.FromContext(ctx)
	results := make([]domain.PageResult, 0, len(pages))
	for _, page := range pages {
		result, err := s.processPage(ctx, page, cred)
		if err != nil {
			// A caller disconnect aborts the remaining pages outright.
			if ctx.Err() != nil {
				return domain.DocumentResult{}, ctx.Err()
			}
			log.Warn("Page extraction failed",
				zap.Int("page", page.Number),
				zap.Error(err),
			)
			metrics.PagesProcessedTotal.WithLabelValues("failed").Inc()
			result = pageError(page.Number, err)
		} else if result.Metadata.Error != "" {
			metrics.PagesProcessedTotal.WithLabelValues("degraded").Inc()
		} else {
			metrics.PagesProcessedTotal.WithLabelValues("ok").Inc()
		}
		results = append(results, result)
	}

	metrics.DocumentsProcessedTotal.WithLabelValues(string(doc.Kind), "success").Inc()
	return merge(results), nil
}

func (s *Service) processPage(
	ctx context.Context,
	page domain.PageImage,
	cred domain.Credential,
) (domain.PageResult, error) {
	raw, err := s.client.Extract(ctx, page, s.contract, cred)
	if err != nil {
		return domain.PageResult{}, err
	}

	result, err := s.normalizer.Normalize(raw)
	if err != nil {
		return domain.PageResult{}, err
	}
	result.PageNumber = page.Number
	return result, nil
}

// pageError builds the PageResult-shaped record for a page whose model call or
// normalization failed outright. Failed pages stay visible in the output.
func pageError(pageNumber int, err error) domain.PageResult {
	return domain.PageResult{
		PageNumber:   pageNumber,
		DocumentType: "unknown",
		Entities:     map[string][]domain.EntityRecord{},
		Metadata: domain.PageMetadata{
			Language:          "unknown",
			Confidence:        domain.ConfidenceLow,
			DocumentCondition: domain.ConditionError,
			SpecialElements:   []string{},
			Error:             err.Error(),
		},
		Error: err.Error(),
	}
}

// merge combines per-page results into one document-level result. The shape is
// the same for single- and multi-page documents; only the page-delimiting text
// headers and document-level labels differ.
func merge(results []domain.PageResult) domain.DocumentResult {
	if len(results) == 1 {
		return mergeSingle(results[0])
	}

	var sections []string
	structured := make(map[string]domain.PageStructuredData, len(results))

	for _, r := range results {
		if r.ExtractedText.RawText != "" {
			sections = append(sections,
				fmt.Sprintf("--- Page %d ---", r.PageNumber),
				r.ExtractedText.RawText,
			)
		}
		if r.Error == "" {
			structured[fmt.Sprintf("page_%d", r.PageNumber)] = domain.PageStructuredData{
				DocumentType: r.DocumentType,
				Entities:     r.Entities,
			}
		}
	}

	return domain.DocumentResult{
		DocumentType: "multi-page document",
		TotalPages:   len(results),
		ExtractedText: domain.CombinedText{
			RawText:        strings.Join(sections, "\n\n"),
			StructuredData: structured,
		},
		Metadata: domain.DocumentMetadata{
			Language:        firstLanguage(results),
			Confidence:      domain.ConfidenceMedium,
			SpecialElements: []string{"multiple pages"},
			PageResults:     results,
		},
	}
}

// mergeSingle passes a lone page through without page-delimiter wrapping.
func mergeSingle(r domain.PageResult) domain.DocumentResult {
	structured := make(map[string]domain.PageStructuredData, 1)
	if r.Error == "" {
		structured["page_1"] = domain.PageStructuredData{
			DocumentType: r.DocumentType,
			Entities:     r.Entities,
		}
	}

	return domain.DocumentResult{
		DocumentType: r.DocumentType,
		TotalPages:   1,
		ExtractedText: domain.CombinedText{
			RawText:        r.ExtractedText.RawText,
			StructuredData: structured,
		},
		Metadata: domain.DocumentMetadata{
			Language:        firstLanguage([]domain.PageResult{r}),
			Confidence:      r.Metadata.Confidence,
			SpecialElements: r.Metadata.SpecialElements,
			PageResults:     []domain.PageResult{r},
		},
	}
}

// firstLanguage returns the language of the first page that reports one.
func firstLanguage(results []domain.PageResult) string {
	for _, r := range results {
		if lang := r.Metadata.Language; lang != "" && lang != "unknown" {
			return lang
		}
	}
	return "unknown"
}
