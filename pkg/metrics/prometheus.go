// Package metrics provides Prometheus metrics for the venue recommender.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the recommender.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Query Metrics - what callers asked for and what they got
	queries        *prometheus.CounterVec
	queryLatency   *prometheus.HistogramVec
	eventsScored   prometheus.Counter
	eventsExcluded *prometheus.CounterVec
	venuesReturned prometheus.Histogram

	// Geocoding Metrics - external lookups
	geocodeLookups      *prometheus.CounterVec
	geocodeLatency      prometheus.Histogram
	geocodeCircuitState prometheus.Gauge

	// Snapshot Metrics - dataset loads and swaps
	snapshotRecords         prometheus.Gauge
	snapshotLastLoadUnix    prometheus.Gauge
	snapshotRefreshes       *prometheus.CounterVec
	snapshotRefreshDuration prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager on a fresh registry with opts. Call it
// once at startup, before anything records.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vor",
		subsystem:        "recommender",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often gauge updaters should sample.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.queries = auto.NewCounterVec(
		m.counterOpts("queries_total", "Total number of queries by kind and outcome"),
		[]string{"kind", "outcome"},
	)
	m.queryLatency = auto.NewHistogramVec(
		m.histogramOpts("query_latency_milliseconds", "Query pipeline latency in milliseconds", m.histogramBuckets),
		[]string{"kind"},
	)
	m.eventsScored = auto.NewCounter(
		m.counterOpts("events_scored_total", "Total number of events that received a defined score"),
	)
	m.eventsExcluded = auto.NewCounterVec(
		m.counterOpts("events_excluded_total", "Total number of events excluded for an undefined metric"),
		[]string{"reason"},
	)
	m.venuesReturned = auto.NewHistogram(
		m.histogramOpts("venues_returned", "Number of venues in each ranked result", []float64{0, 1, 2, 3, 4, 5, 10, 25}),
	)

	m.geocodeLookups = auto.NewCounterVec(
		m.counterOpts("geocode_lookups_total", "Total number of geocode lookups by outcome"),
		[]string{"outcome"},
	)
	m.geocodeLatency = auto.NewHistogram(
		m.histogramOpts("geocode_latency_milliseconds", "Geocode lookup latency in milliseconds", m.histogramBuckets),
	)
	m.geocodeCircuitState = auto.NewGauge(
		m.gaugeOpts("geocode_circuit_state", "Geocoder circuit breaker state (0 closed, 1 half-open, 2 open)"),
	)

	m.snapshotRecords = auto.NewGauge(
		m.gaugeOpts("snapshot_records", "Number of records in the active dataset snapshot"),
	)
	m.snapshotLastLoadUnix = auto.NewGauge(
		m.gaugeOpts("snapshot_last_load_unix", "Unix timestamp of the active snapshot load"),
	)
	m.snapshotRefreshes = auto.NewCounterVec(
		m.counterOpts("snapshot_refresh_total", "Total number of snapshot refresh attempts by result"),
		[]string{"result"},
	)
	m.snapshotRefreshDuration = auto.NewHistogram(
		m.histogramOpts("snapshot_refresh_duration_milliseconds", "Snapshot load duration in milliseconds", m.histogramBuckets),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
}

// RefreshInterval returns the sampling interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// RecordQuery records one query outcome and its latency.
func RecordQuery(kind, outcome string, latencyMs float64) {
	globalManager.queries.WithLabelValues(kind, outcome).Inc()
	globalManager.queryLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordEventsScored adds n defined scores.
func RecordEventsScored(n int) {
	globalManager.eventsScored.Add(float64(n))
}

// RecordEventsExcluded adds n exclusions for the given undefined metric.
func RecordEventsExcluded(reason string, n int) {
	globalManager.eventsExcluded.WithLabelValues(reason).Add(float64(n))
}

// RecordVenuesReturned observes the size of a ranked result.
func RecordVenuesReturned(n int) {
	globalManager.venuesReturned.Observe(float64(n))
}

// RecordGeocodeLookup records a geocode lookup outcome and latency.
func RecordGeocodeLookup(outcome string, latencyMs float64) {
	globalManager.geocodeLookups.WithLabelValues(outcome).Inc()
	globalManager.geocodeLatency.Observe(latencyMs)
}

// UpdateGeocodeCircuitState sets the breaker state gauge.
func UpdateGeocodeCircuitState(state int) {
	globalManager.geocodeCircuitState.Set(float64(state))
}

// UpdateSnapshot publishes the active snapshot's size and load time.
func UpdateSnapshot(records int, loadedAt time.Time) {
	globalManager.snapshotRecords.Set(float64(records))
	globalManager.snapshotLastLoadUnix.Set(float64(loadedAt.Unix()))
}

// RecordSnapshotRefresh records one refresh attempt.
func RecordSnapshotRefresh(result string, durationMs float64) {
	globalManager.snapshotRefreshes.WithLabelValues(result).Inc()
	globalManager.snapshotRefreshDuration.Observe(durationMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method string, statusCode int) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method string, statusCode int, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
