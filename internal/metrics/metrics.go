package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crypto_alert",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crypto_alert",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crypto_alert",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Price provider metrics ─────────────────────────────────────────────

var (
	PriceFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crypto_alert",
		Subsystem: "price",
		Name:      "fetch_total",
		Help:      "Total number of price provider requests per endpoint.",
	}, []string{"endpoint", "status"})

	PriceFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crypto_alert",
		Subsystem: "price",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of price provider requests in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crypto_alert",
		Subsystem: "price",
		Name:      "evaluations_total",
		Help:      "Total symbol evaluations by resulting tier.",
	}, []string{"symbol", "tier"})
)

// ── Chat delivery metrics ──────────────────────────────────────────────

var (
	ChatOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crypto_alert",
		Subsystem: "chat",
		Name:      "operations_total",
		Help:      "Total chat API operations (post, edit, open) by outcome.",
	}, []string{"op", "status"})

	ChatRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crypto_alert",
		Subsystem: "chat",
		Name:      "retries_total",
		Help:      "Total chat API retries after transport failures.",
	}, []string{"op"})
)

// ── Event dispatch metrics ─────────────────────────────────────────────

var (
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crypto_alert",
		Subsystem: "events",
		Name:      "dispatched_total",
		Help:      "Total inbound chat events by kind and outcome.",
	}, []string{"kind", "outcome"})

	EventDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crypto_alert",
		Subsystem: "events",
		Name:      "handler_duration_seconds",
		Help:      "Event handler latency in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
	}, []string{"kind"})

	RegistryRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crypto_alert",
		Subsystem: "alerts",
		Name:      "registry_records",
		Help:      "Number of alert records held in memory.",
	})
)

// ── Batch metrics ──────────────────────────────────────────────────────

var BatchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crypto_alert",
	Subsystem: "batch",
	Name:      "runs_total",
	Help:      "Total batch runs by outcome.",
}, []string{"status"})
