// Package metrics defines the Prometheus collectors for the retrieval
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline and its servers.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	QueriesTotal         *prometheus.CounterVec
	RankingLatency       *prometheus.HistogramVec
	RankedDocuments      *prometheus.HistogramVec
	ExpansionTerms       prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	BuildDuration        *prometheus.HistogramVec
	VocabularySize       *prometheus.GaugeVec
	SnapshotLoadsTotal   *prometheus.CounterVec
	EvaluationPrecision  *prometheus.GaugeVec
	EvaluationRecall     *prometheus.GaugeVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg
// registers with the process-wide default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_queries_total",
				Help: "Total ranked queries by mode (global, local) and outcome (ranked, no_results, error).",
			},
			[]string{"mode", "outcome"},
		),
		RankingLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_ranking_latency_seconds",
				Help:    "Latency of expanding and ranking one query set.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
			},
			[]string{"mode"},
		),
		RankedDocuments: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_ranked_documents",
				Help:    "Number of documents returned per query.",
				Buckets: []float64{0, 1, 3, 5, 10, 25, 50, 100, 500},
			},
			[]string{"policy"},
		),
		ExpansionTerms: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_expansion_terms",
				Help:    "Size of each expanded query term set.",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of ranking cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of ranking cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents added to an inverted index.",
			},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_build_duration_seconds",
				Help:    "Duration of corpus build stages (index, weight, snapshot).",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"stage"},
		),
		VocabularySize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "retrieval_vocabulary_size",
				Help: "Number of distinct terms in the most recent matrix per corpus.",
			},
			[]string{"corpus"},
		),
		SnapshotLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_loads_total",
				Help: "Snapshot lookups by result (hit, rebuilt).",
			},
			[]string{"result"},
		),
		EvaluationPrecision: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evaluation_precision",
				Help: "Aggregate precision of the most recent evaluation run.",
			},
			[]string{"label"},
		),
		EvaluationRecall: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evaluation_recall",
				Help: "Aggregate recall of the most recent evaluation run.",
			},
			[]string{"label"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.RankingLatency,
		m.RankedDocuments,
		m.ExpansionTerms,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.BuildDuration,
		m.VocabularySize,
		m.SnapshotLoadsTotal,
		m.EvaluationPrecision,
		m.EvaluationRecall,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
