// Package httpapi is the thin HTTP boundary over the extraction pipeline.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
	"github.com/celiksa/ocr-entity-extraction/internal/logger"
	"github.com/celiksa/ocr-entity-extraction/internal/samples"
	"github.com/celiksa/ocr-entity-extraction/internal/usecase/extraction"
	healthuc "github.com/celiksa/ocr-entity-extraction/internal/usecase/health"
)

// maxUploadBytes bounds document uploads (large scans are common, PDFs of
// hundreds of pages are not the target).
const maxUploadBytes = 64 << 20

// Server holds the HTTP handlers.
type Server struct {
	processor extraction.Processor
	samples   *samples.Store
	health    *healthuc.Service
	logger    *zap.Logger
}

// NewServer creates the API server.
func NewServer(
	processor extraction.Processor,
	store *samples.Store,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		processor: processor,
		samples:   store,
		health:    health,
		logger:    logger,
	}
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/samples", s.handleSampleTree)
	r.Post("/api/ocr/upload", s.handleUpload)
	r.Post("/api/ocr/sample/*", s.handleSample)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/samples/*", http.StripPrefix("/samples/", http.FileServer(http.Dir(s.samples.Dir()))))
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "OCR Document Processor API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Check())
}

func (s *Server) handleSampleTree(w http.ResponseWriter, _ *http.Request) {
	tree, err := s.samples.Tree()
	if err != nil {
		s.logger.Error("Failed to list samples", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list samples")
		return
	}
	writeJSON(w, http.StatusOK, map[string]samples.Node{"structure": tree})
}

// handleUpload processes an uploaded image or PDF.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	kind, ok := domain.KindForContentType(header.Header.Get("Content-Type"))
	if !ok {
		kind, ok = domain.KindForFilename(header.Filename)
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "file must be an image or PDF")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	s.process(w, r, header.Filename, domain.Document{Bytes: data, Kind: kind})
}

// handleSample processes a named file from the sample store.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")

	doc, err := s.samples.Read(name)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("sample file not found: %s", name))
		return
	}

	logger.FromContext(r.Context()).Info("Processing sample file", zap.String("filename", name))
	s.process(w, r, name, doc)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request, filename string, doc domain.Document) {
	result, err := s.processor.Process(r.Context(), doc)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"filename": filename,
		"result":   result,
	})
}

// handleDomainError maps document-level pipeline failures to HTTP statuses.
// Page-level failures never reach here; they are folded into the result.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	switch {
	case errors.Is(err, domain.ErrSegmentation):
		writeError(w, http.StatusBadRequest, "failed to process document: "+err.Error())
	case errors.Is(err, domain.ErrAuth):
		log.Error("Credential exchange failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to authenticate with the model provider")
	case errors.Is(err, r.Context().Err()):
		// Client went away; nothing useful to write.
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		log.Error("Document processing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
