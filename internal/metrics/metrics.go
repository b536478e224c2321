// Package metrics exposes prometheus instrumentation for the render
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup outcomes.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeStale = "stale"
	OutcomeError = "error"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	ResolveDuration  prometheus.Histogram
}

// New registers the pipeline collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prerender_cache_lookups_total",
			Help: "Cache lookups by outcome (hit, miss, stale, error).",
		}, []string{"outcome"}),
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prerender_upstream_requests_total",
			Help: "Upstream fetches by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ResolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prerender_resolve_duration_seconds",
			Help:    "End-to-end page resolution time.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// NewUnregistered returns collectors backed by a private registry. Useful in
// tests that do not scrape.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
