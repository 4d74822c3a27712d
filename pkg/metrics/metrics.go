// Package metrics holds the shared Prometheus collectors of the engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

//nolint: gochecknoglobals
var (
	// once guards registration; the prometheus registry panics on duplicates.
	once sync.Once

	// CacheOperations counts enrichment cache lookups by layer (local,
	// redis) and outcome (hit, miss).
	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_cache_operations_total",
			Help: "Enrichment cache operations by layer and outcome.",
		},
		[]string{"layer", "outcome"},
	)

	// ResolutionTotal counts redirect resolutions by method and outcome.
	ResolutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "url_resolution_total",
			Help: "URL resolutions by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	// MonetizationTotal counts monetization results by strategy.
	MonetizationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monetization_total",
			Help: "Monetization results by strategy.",
		},
		[]string{"strategy"},
	)

	// AffiliateCallDuration records affiliate-network call latency by final
	// HTTP status.
	AffiliateCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affiliate_call_duration_seconds",
			Help:    "Affiliate network call latency distributions.",
			Buckets: DefaultBuckets,
		},
		[]string{"status"},
	)
)

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			CacheOperations,
			ResolutionTotal,
			MonetizationTotal,
			AffiliateCallDuration,
		)
	})
}
