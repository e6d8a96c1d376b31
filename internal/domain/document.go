package domain

import (
	"path/filepath"
	"strings"
)

// MediaKind is the declared payload kind of an inbound document.
type MediaKind string

const (
	// KindImage is a single raster image (JPEG, PNG, GIF, BMP).
	KindImage MediaKind = "image"
	// KindPDF is a multi-page PDF container.
	KindPDF MediaKind = "pdf"
)

// Document is an inbound payload to process. Immutable once received.
type Document struct {
	Bytes []byte
	Kind  MediaKind
}

// PageImage is one rendered page in the canonical raster format (PNG).
// Number is 1-based within the originating document.
type PageImage struct {
	Number int
	PNG    []byte
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

// KindForFilename infers the media kind from a file extension.
// Returns false when the extension is not a supported document type.
func KindForFilename(name string) (MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".pdf" {
		return KindPDF, true
	}
	if imageExts[ext] {
		return KindImage, true
	}
	return "", false
}

// KindForContentType infers the media kind from an HTTP content type.
func KindForContentType(contentType string) (MediaKind, bool) {
	switch {
	case contentType == "application/pdf":
		return KindPDF, true
	case strings.HasPrefix(contentType, "image/"):
		return KindImage, true
	default:
		return "", false
	}
}
