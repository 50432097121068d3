// Package metrics provides Prometheus metrics for the pong ladder service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bucket layouts for rating-specific histograms.
var (
	kFactorBuckets     = prometheus.LinearBuckets(16, 4, 9)                   //nolint:gochecknoglobals // 16..48
	ratingDeltaBuckets = []float64{-40, -30, -20, -10, -5, 0, 5, 10, 20, 30, 40} //nolint:gochecknoglobals
	ratingDriftBuckets = []float64{-20, -10, -5, -1, 0, 1, 5, 10, 20}           //nolint:gochecknoglobals
	latencyBuckets     = []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250}     //nolint:gochecknoglobals
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    map[string]string
	registry       prometheus.Registerer

	// Rating business metrics
	matchesRecorded prometheus.Counter
	matchesRejected *prometheus.CounterVec
	matchDuplicates prometheus.Counter
	kFactor         prometheus.Histogram
	ratingDelta     prometheus.Histogram
	ratingDrift     prometheus.Histogram

	// State gauges
	totalPlayers prometheus.Gauge
	totalMatches prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace overrides the "pong" namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithSubsystem overrides the "ladder" subsystem.
func WithSubsystem(sub string) Option {
	return func(m *Manager) {
		if sub != "" {
			m.subsystem = sub
		}
	}
}

// WithHistogramBuckets replaces the store latency buckets (milliseconds).
func WithHistogramBuckets(b []float64) Option {
	return func(m *Manager) {
		if len(b) > 0 {
			m.latencyBuckets = b
		}
	}
}

// WithConstLabels adds labels such as env or instance to every collector.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.constLabels = labels
		}
	}
}

// WithPrometheusRegistry registers collectors on reg instead of the default registerer.
func WithPrometheusRegistry(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "pong",
		subsystem:      "ladder",
		latencyBuckets: latencyBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.matchesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matches_recorded_total",
		Help:        "Total number of matches scored and persisted",
		ConstLabels: m.constLabels,
	})

	m.matchesRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matches_rejected_total",
		Help:        "Match submissions rejected before scoring, by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.matchDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "match_duplicates_total",
		Help:        "Match submissions ignored because their idempotency key was already used",
		ConstLabels: m.constLabels,
	})

	m.kFactor = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "k_factor",
		Help:        "Dynamic K-factor applied per player per match",
		Buckets:     kFactorBuckets,
		ConstLabels: m.constLabels,
	})

	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rating_delta",
		Help:        "Rating change applied per player per match",
		Buckets:     ratingDeltaBuckets,
		ConstLabels: m.constLabels,
	})

	m.ratingDrift = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rating_sum_drift",
		Help:        "Sum of both players' rating deltas per match (non-zero when K-factors differ)",
		Buckets:     ratingDriftBuckets,
		ConstLabels: m.constLabels,
	})

	m.totalPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "players",
		Help:        "Number of registered players",
		ConstLabels: m.constLabels,
	})

	m.totalMatches = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matches",
		Help:        "Number of recorded matches",
		ConstLabels: m.constLabels,
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_latency_milliseconds",
		Help:        "Store operation latency in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_errors_total",
		Help:        "Store operation failures",
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Errors by component and type",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})
}

// RecordMatch records one scored match: both K-factors and deltas plus their sum.
func (m *Manager) RecordMatch(kA, kB, deltaA, deltaB float64) {
	m.matchesRecorded.Inc()
	m.kFactor.Observe(kA)
	m.kFactor.Observe(kB)
	m.ratingDelta.Observe(deltaA)
	m.ratingDelta.Observe(deltaB)
	m.ratingDrift.Observe(deltaA + deltaB)
}

// RecordMatch records a scored match on the global manager.
func RecordMatch(kA, kB, deltaA, deltaB float64) {
	globalManager.RecordMatch(kA, kB, deltaA, deltaB)
}

// RecordMatchRejected counts a rejected submission.
func RecordMatchRejected(reason string) {
	globalManager.matchesRejected.WithLabelValues(reason).Inc()
}

// RecordMatchDuplicate counts a submission with a reused idempotency key.
func RecordMatchDuplicate() {
	globalManager.matchDuplicates.Inc()
}

// UpdateTotalPlayers sets the registered players gauge.
func UpdateTotalPlayers(count int) {
	globalManager.totalPlayers.Set(float64(count))
}

// UpdateTotalMatches sets the recorded matches gauge.
func UpdateTotalMatches(count int) {
	globalManager.totalMatches.Set(float64(count))
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
