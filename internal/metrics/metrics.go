// Package metrics declares the worker's Prometheus collectors. Components
// record into the fields of the *Metrics returned by New; Handler exposes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New builds the collector set under the given namespace and registers
// them with a dedicated registry (not the global default, so tests and
// multiple worker instances in one process don't collide on registration).
type Metrics struct {
	SearchLatency   *prometheus.HistogramVec
	BulkLatency     *prometheus.HistogramVec
	CandidatesFound *prometheus.CounterVec
	CacheHitRatio   *prometheus.GaugeVec
	MatchesInserted *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	CredentialCooldowns *prometheus.CounterVec
	DailyCallsRemaining prometheus.Gauge

	registry *prometheus.Registry
}

// New constructs and registers every collector under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		SearchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "search_duration_seconds", Help: "Latency of eBay search_summary calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"item_type"}),
		BulkLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "bulk_detail_duration_seconds", Help: "Latency of eBay bulk item detail calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		CandidatesFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "candidates_found_total", Help: "Candidates surviving the pre-filter stage.",
		}, []string{"task_id", "item_type"}),
		CacheHitRatio: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cache_hit_ratio", Help: "Item-detail cache hit ratio for the most recent task invocation.",
		}, []string{"task_id"}),
		MatchesInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_inserted_total", Help: "Matches persisted, by item type.",
		}, []string{"item_type"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rejections_total", Help: "Candidates rejected, by item type and reason bucket.",
		}, []string{"item_type", "reason"}),
		CredentialCooldowns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "credential_cooldowns_total", Help: "Credential cooldowns entered, by app ID.",
		}, []string{"app_id"}),
		DailyCallsRemaining: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "daily_calls_remaining", Help: "Remaining eBay API calls before the daily cap.",
		}),
	}
	return m
}

// Handler returns the promhttp handler for this Metrics' registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
