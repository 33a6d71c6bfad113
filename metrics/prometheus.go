package metrics

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visar_ingest_total",
			Help: "Reference documents ingested, by outcome",
		},
		[]string{"outcome"}, // indexed, unindexed, failed
	)

	ExtractionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visar_extraction_failures_total",
			Help: "Text extraction failures, by format and reason",
		},
		[]string{"format", "reason"},
	)

	RetrievalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visar_retrieval_total",
			Help: "Context retrievals, by outcome",
		},
		[]string{"outcome"}, // hit, empty, degraded
	)

	RetrievalMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "visar_retrieval_matches",
			Help:    "Matches surviving the relevance filter per retrieval",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	IndexErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visar_vector_index_errors_total",
			Help: "Vector index call failures, by operation",
		},
		[]string{"operation"},
	)

	EmbeddingCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visar_embedding_cache_total",
			Help: "Embedding cache lookups, by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visar_generation_duration_seconds",
			Help:    "Generative model call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"mode", "status"},
	)

	ReindexedDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visar_reindexed_documents_total",
			Help: "Documents processed by the reindex sweep, by outcome",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			IngestTotal,
			ExtractionFailures,
			RetrievalTotal,
			RetrievalMatches,
			IndexErrors,
			EmbeddingCache,
			GenerationDuration,
			ReindexedDocuments,
		)
	})
}

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
