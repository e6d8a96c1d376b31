package metrics

import "github.com/prometheus/client_golang/prometheus"

// Extraction pipeline Prometheus metrics.
var (
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Name:      "model_requests_total",
			Help:      "Total number of model extraction requests",
		},
		[]string{"model", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ocr",
			Name:      "model_request_duration_seconds",
			Help:      "Model extraction request duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model"},
	)

	PagesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Name:      "pages_processed_total",
			Help:      "Per-page extraction outcomes",
		},
		[]string{"outcome"}, // "ok" / "degraded" / "failed"
	)

	DocumentsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Name:      "documents_processed_total",
			Help:      "Processed documents by media kind",
		},
		[]string{"kind", "status"},
	)

	TokenExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Name:      "token_exchanges_total",
			Help:      "Identity-provider token exchanges",
		},
		[]string{"status"},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocr",
			Name:      "result_cache_total",
			Help:      "Document result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var extractionMetricsRegistered bool

// RegisterExtractionMetrics registers pipeline metrics. Must be called once from main.
func RegisterExtractionMetrics() {
	if extractionMetricsRegistered {
		return
	}
	prometheus.MustRegister(ModelRequestsTotal)
	prometheus.MustRegister(ModelRequestDuration)
	prometheus.MustRegister(PagesProcessedTotal)
	prometheus.MustRegister(DocumentsProcessedTotal)
	prometheus.MustRegister(TokenExchangesTotal)
	prometheus.MustRegister(ResultCacheTotal)
	extractionMetricsRegistered = true
}
