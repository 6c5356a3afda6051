// Package metrics exposes Prometheus collectors for advice requests and
// backend fallbacks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Advice sources.
const (
	SourceModel = "model"
	SourceRules = "rules"
)

var (
	AdviceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_requests_total",
			Help: "Total number of advisor operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	AdviceSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_advice_source_total",
			Help: "Advice responses by the source that produced them",
		},
		[]string{"operation", "source"},
	)

	BackendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_backend_fallbacks_total",
			Help: "Backend calls that fell back to deterministic logic",
		},
		[]string{"backend", "reason"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_operation_duration_seconds",
			Help:    "Duration of advisor operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	TemplateSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_template_selections_total",
			Help: "Rule-based template selections by template id",
		},
		[]string{"template"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_cache_lookups_total",
			Help: "Generated text cache lookups by result",
		},
		[]string{"store", "result"},
	)
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_rate_limited_requests_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	SuspiciousRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_suspicious_requests_total",
			Help: "Requests matching known attack patterns",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_events_published_total",
			Help: "Advice events published to the broker by outcome",
		},
		[]string{"outcome"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_events_consumed_total",
			Help: "Advice events consumed by the audit worker",
		},
		[]string{"operation", "source"},
	)

	BackendReady = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "advisor_backend_ready",
			Help: "1 when the backend is initialized and ready, 0 otherwise",
		},
		[]string{"backend"},
	)

	CacheSweptEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_cache_swept_entries_total",
			Help: "Expired cache entries removed by scheduled sweeps",
		},
	)
)
