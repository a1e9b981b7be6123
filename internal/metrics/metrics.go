// Package metrics holds the Prometheus instruments shared across the service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded on RecommendationFetches
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeSuccess  = "success"
	OutcomeDisabled = "disabled"
	OutcomeInvalid  = "invalid"
)

var (
	// RecommendationFetches counts gateway calls by provider and outcome.
	// Failure outcomes use the providers.ErrorKind string.
	RecommendationFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_fetches_total",
			Help: "Total recommendation fetches by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_upstream_duration_seconds",
			Help:    "Duration of upstream recommendation calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"provider"},
	)

	RecommendationsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_records_returned",
			Help:    "Number of records returned per successful fetch",
			Buckets: []float64{0, 1, 3, 6, 12, 25, 50},
		},
		[]string{"provider"},
	)

	CacheWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_cache_write_errors_total",
			Help: "Total failed cache writes after a successful fetch",
		},
		[]string{"provider"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommendation_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_emails_total",
			Help: "Recommendation emails by result",
		},
		[]string{"result"}, // "sent", "skipped", "failed"
	)

	TrackingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_tracking_events_total",
			Help: "Recorded recommendation tracking events by type",
		},
		[]string{"event_type"},
	)
)
