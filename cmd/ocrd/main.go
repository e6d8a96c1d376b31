package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/celiksa/ocr-entity-extraction/internal/auth"
	"github.com/celiksa/ocr-entity-extraction/internal/config"
	dbRedis "github.com/celiksa/ocr-entity-extraction/internal/db/redis"
	"github.com/celiksa/ocr-entity-extraction/internal/domain"
	logpkg "github.com/celiksa/ocr-entity-extraction/internal/logger"
	"github.com/celiksa/ocr-entity-extraction/internal/metrics"
	"github.com/celiksa/ocr-entity-extraction/internal/normalize"
	"github.com/celiksa/ocr-entity-extraction/internal/repository/resultcache"
	"github.com/celiksa/ocr-entity-extraction/internal/samples"
	"github.com/celiksa/ocr-entity-extraction/internal/segment"
	"github.com/celiksa/ocr-entity-extraction/internal/transport/httpapi"
	"github.com/celiksa/ocr-entity-extraction/internal/transport/watsonx"
	extractionuc "github.com/celiksa/ocr-entity-extraction/internal/usecase/extraction"
	healthuc "github.com/celiksa/ocr-entity-extraction/internal/usecase/health"
	"github.com/celiksa/ocr-entity-extraction/internal/version"
)

func main() {
	// Local development keeps secrets in a .env file.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting OCR extraction server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("model_id", cfg.WatsonX.ModelID),
	)

	contract := buildContract(cfg, logger)

	// Pipeline components.
	segmenter := segment.New(cfg.Segmenter.DPI)
	normalizer := normalize.New()
	broker := auth.New(auth.Config{
		TokenURL: cfg.WatsonX.TokenURL,
		APIKey:   cfg.WatsonX.APIKey,
		Margin:   time.Duration(cfg.WatsonX.TokenMarginMin) * time.Minute,
		Timeout:  time.Duration(cfg.WatsonX.ExchangeTimeoutSec) * time.Second,
	}, logger)
	modelClient := watsonx.NewClient(watsonx.Config{
		BaseURL:   cfg.WatsonX.URL,
		ProjectID: cfg.WatsonX.ProjectID,
		Timeout:   time.Duration(cfg.WatsonX.RequestTimeoutSec) * time.Second,
		Logger:    logger,
	})

	metrics.RegisterExtractionMetrics()

	var processor extractionuc.Processor = extractionuc.New(
		segmenter, modelClient, normalizer, broker, contract,
	)

	// Optional content-addressed result cache.
	if len(cfg.Cache.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		processor = resultcache.New(
			processor, store, cfg.Cache.KeyPrefix,
			time.Duration(cfg.Cache.TTLHours)*time.Hour, logger,
		)
		logger.Info("Result cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	sampleStore, err := samples.New(cfg.Samples.Dir)
	if err != nil {
		logger.Fatal("Failed to open samples dir", zap.Error(err))
	}

	healthSvc := healthuc.New(cfg.WatsonX.APIKey != "", contract)
	server := httpapi.NewServer(processor, sampleStore, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildContract assembles the immutable per-page instruction contract. The
// taxonomy prompt is versioned configuration: the embedded default can be
// overridden by a prompt file.
func buildContract(cfg config.Config, logger *zap.Logger) domain.ExtractionContract {
	prompt := domain.DefaultSystemPrompt()
	if cfg.WatsonX.PromptFile != "" {
		data, err := os.ReadFile(cfg.WatsonX.PromptFile)
		if err != nil {
			logger.Fatal("Failed to read prompt file", zap.String("path", cfg.WatsonX.PromptFile), zap.Error(err))
		}
		prompt = string(data)
	}

	return domain.ExtractionContract{
		SystemPrompt: prompt,
		ModelID:      cfg.WatsonX.ModelID,
		MaxTokens:    cfg.WatsonX.MaxTokens,
		Temperature:  cfg.WatsonX.Temperature,
		TopP:         cfg.WatsonX.TopP,
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
