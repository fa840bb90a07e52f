// Package metrics provides Prometheus metrics for the bikeflow dashboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exposes.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Dataset metrics
	datasetRecords      prometheus.Gauge
	datasetNTAs         prometheus.Gauge
	datasetFiles        prometheus.Gauge
	datasetLoadDuration prometheus.Histogram
	datasetLoadErrors   prometheus.Counter
	datasetRowsRejected prometheus.Counter
	datasetReloads      *prometheus.CounterVec
	snapshotCount       prometheus.Counter
	snapshotLastUnix    prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	pageRenderDuration  *prometheus.HistogramVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bikeflow",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels}
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.customLabels}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.datasetRecords = auto.NewGauge(m.gaugeOpts("dataset_records", "Flow records in the served dataset"))
	m.datasetNTAs = auto.NewGauge(m.gaugeOpts("dataset_ntas", "Distinct NTAs in the served dataset"))
	m.datasetFiles = auto.NewGauge(m.gaugeOpts("dataset_files", "Daily flow files in the last load"))
	m.datasetLoadDuration = auto.NewHistogram(m.histogramOpts(
		"dataset_load_duration_milliseconds", "Time to read and index the dataset",
		[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}))
	m.datasetLoadErrors = auto.NewCounter(m.counterOpts("dataset_load_errors_total", "Dataset loads that failed"))
	m.datasetRowsRejected = auto.NewCounter(m.counterOpts("dataset_rows_rejected_total", "CSV rows skipped as malformed"))
	m.datasetReloads = auto.NewCounterVec(m.counterOpts("dataset_reloads_total", "Dataset reloads by result"), []string{"result"})
	m.snapshotCount = auto.NewCounter(m.counterOpts("snapshot_count_total", "Datasets published to readers"))
	m.snapshotLastUnix = auto.NewGauge(m.gaugeOpts("snapshot_last_unix", "Unix time of the last published dataset"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})
	m.pageRenderDuration = auto.NewHistogramVec(
		m.histogramOpts("page_render_duration_milliseconds", "Server side page render time", m.histogramBuckets),
		[]string{"page"})

	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Errors by type and severity"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// UpdateDatasetRecords sets the served record count.
func UpdateDatasetRecords(n int) { globalManager.datasetRecords.Set(float64(n)) }

// UpdateDatasetNTAs sets the served NTA count.
func UpdateDatasetNTAs(n int) { globalManager.datasetNTAs.Set(float64(n)) }

// RecordDatasetLoad records a completed load.
func RecordDatasetLoad(files int, durationMs float64) {
	globalManager.datasetFiles.Set(float64(files))
	globalManager.datasetLoadDuration.Observe(durationMs)
}

// RecordDatasetLoadError counts a failed load.
func RecordDatasetLoadError() { globalManager.datasetLoadErrors.Inc() }

// RecordRowsRejected counts malformed CSV rows.
func RecordRowsRejected(n int) { globalManager.datasetRowsRejected.Add(float64(n)) }

// RecordReload counts a watcher-triggered reload; result is "ok" or "error".
func RecordReload(result string) { globalManager.datasetReloads.WithLabelValues(result).Inc() }

// RecordSnapshotPublished marks a dataset swap.
func RecordSnapshotPublished(at time.Time) {
	globalManager.snapshotCount.Inc()
	globalManager.snapshotLastUnix.Set(float64(at.Unix()))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordPageRender records page render latency in milliseconds.
func RecordPageRender(page string, durationMs float64) {
	globalManager.pageRenderDuration.WithLabelValues(page).Observe(durationMs)
}

// RecordErrorByType increments the error counter by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint increments the error counter by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
