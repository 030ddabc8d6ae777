// Package metrics holds the prometheus collectors for pixdex.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the private registry all pixdex collectors are registered on.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// =============================================================================
// Sync Metrics
// =============================================================================

var (
	// SyncPassesTotal counts finished sync passes by outcome.
	SyncPassesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixdex_sync_passes_total",
			Help: "Total sync passes by outcome",
		},
		[]string{"outcome"}, // "complete", "failed", "cancelled"
	)

	// SyncProgress is the progress of the running pass (0-100).
	SyncProgress = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixdex_sync_progress_percent",
			Help: "Progress of the current sync pass",
		},
	)

	// SyncAssetsTotal counts assets handled during sync by result.
	SyncAssetsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixdex_sync_assets_total",
			Help: "Assets handled during sync by result",
		},
		[]string{"result"}, // "extracted", "skipped", "failed", "removed"
	)

	// SyncDurationSeconds measures sync pass duration.
	SyncDurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixdex_sync_duration_seconds",
			Help:    "Duration of sync passes",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)
)

// =============================================================================
// Extraction Metrics
// =============================================================================

var (
	// ExtractionBatchesTotal counts extraction batches by status.
	ExtractionBatchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixdex_extraction_batches_total",
			Help: "Extraction batches by status",
		},
		[]string{"status"}, // "ok", "failed", "timeout"
	)

	// ExtractionBatchSeconds measures remote extraction latency per batch.
	ExtractionBatchSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixdex_extraction_batch_seconds",
			Help:    "Latency of extraction batch requests",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// =============================================================================
// Index Metrics
// =============================================================================

var (
	// IndexRebuildsTotal counts full index rebuilds.
	IndexRebuildsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "pixdex_index_rebuilds_total",
			Help: "Full similarity index rebuilds",
		},
	)

	// IndexMalformedRecordsTotal counts records skipped during builds.
	IndexMalformedRecordsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "pixdex_index_malformed_records_total",
			Help: "Records skipped during index builds because they could not be parsed",
		},
	)

	// QueryDurationSeconds measures similarity query latency.
	QueryDurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixdex_query_duration_seconds",
			Help:    "Latency of similarity queries",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	// QueryCandidates observes the size of the candidate bucket per query.
	QueryCandidates = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixdex_query_candidates",
			Help:    "Candidate set size per similarity query",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
