// Package segment converts inbound documents into ordered per-page PNG images.
package segment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	// Register decoders for the raster formats the sample store accepts.
	_ "image/gif"
	_ "image/jpeg"

	"github.com/gen2brain/go-fitz"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
)

// Segmenter renders documents to the canonical raster format. PDF pages are
// rasterized at a fixed DPI chosen for OCR fidelity; single images are decoded
// and re-encoded as PNG.
type Segmenter struct {
	dpi float64
}

// New creates a segmenter rendering PDF pages at the given DPI.
func New(dpi int) *Segmenter {
	return &Segmenter{dpi: float64(dpi)}
}

// Segment converts a document into its ordered page images, numbered 1..N.
// The input document is not retained. Payloads that cannot be parsed as the
// declared media kind fail wrapping domain.ErrSegmentation.
func (s *Segmenter) Segment(ctx context.Context, doc domain.Document) ([]domain.PageImage, error) {
	switch doc.Kind {
	case domain.KindPDF:
		return s.segmentPDF(ctx, doc.Bytes)
	case domain.KindImage:
		page, err := reencodeImage(doc.Bytes)
		if err != nil {
			return nil, err
		}
		return []domain.PageImage{page}, nil
	default:
		return nil, fmt.Errorf("media kind %q: %w", doc.Kind, domain.ErrSegmentation)
	}
}

func (s *Segmenter) segmentPDF(ctx context.Context, data []byte) ([]domain.PageImage, error) {
	pdf, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %v: %w", err, domain.ErrSegmentation)
	}
	// The document handle is the only acquired resource; closing it releases
	// everything on both success and failure paths.
	defer pdf.Close()

	total := pdf.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("pdf has no pages: %w", domain.ErrSegmentation)
	}

	pages := make([]domain.PageImage, 0, total)
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := pdf.ImageDPI(i, s.dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %v: %w", i+1, err, domain.ErrSegmentation)
		}

		encoded, err := encodePNG(img)
		if err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, domain.PageImage{Number: i + 1, PNG: encoded})
	}

	return pages, nil
}

// reencodeImage reinterprets a single raster image as a one-page document in
// the canonical PNG encoding.
func reencodeImage(data []byte) (domain.PageImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.PageImage{}, fmt.Errorf("decode image: %v: %w", err, domain.ErrSegmentation)
	}

	encoded, err := encodePNG(img)
	if err != nil {
		return domain.PageImage{}, err
	}
	return domain.PageImage{Number: 1, PNG: encoded}, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
