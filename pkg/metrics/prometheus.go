package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Timeline
	timelineMutations *prometheus.CounterVec
	timelineUndo      prometheus.Counter
	timelineRedo      prometheus.Counter
	timelineEvents    prometheus.Gauge

	// Export
	exportsStarted   prometheus.Counter
	exportsRejected  prometheus.Counter
	exportsFinished  *prometheus.CounterVec
	exportDuration   prometheus.Histogram
	exportProgress   prometheus.Gauge
	exportActive     prometheus.Gauge
	overlayLayers    prometheus.Histogram
	handleRefreshes  *prometheus.CounterVec
	compositionError *prometheus.CounterVec

	// Repository
	repositoryLatency *prometheus.HistogramVec
	projectsTotal     prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bjjscore",
		subsystem:        "scoreboard",
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

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.timelineMutations = auto.NewCounterVec(
		m.counterOpts("timeline_mutations_total", "Timeline mutations by operation"),
		[]string{"operation"},
	)
	m.timelineUndo = auto.NewCounter(m.counterOpts("timeline_undo_total", "Successful undo operations"))
	m.timelineRedo = auto.NewCounter(m.counterOpts("timeline_redo_total", "Successful redo operations"))
	m.timelineEvents = auto.NewGauge(m.gaugeOpts("timeline_events", "Events in the active timeline"))

	m.exportsStarted = auto.NewCounter(m.counterOpts("exports_started_total", "Export runs started"))
	m.exportsRejected = auto.NewCounter(m.counterOpts("exports_rejected_total", "Export starts ignored while busy or closed"))
	m.exportsFinished = auto.NewCounterVec(
		m.counterOpts("exports_finished_total", "Export runs by terminal outcome"),
		[]string{"outcome"},
	)
	m.exportDuration = auto.NewHistogram(m.histogramOpts(
		"export_duration_seconds", "Wall time of export runs in seconds",
		prometheus.ExponentialBuckets(1, 2, 10),
	))
	m.exportProgress = auto.NewGauge(m.gaugeOpts("export_progress_ratio", "Progress of the running export"))
	m.exportActive = auto.NewGauge(m.gaugeOpts("export_active", "1 while an export is running"))
	m.overlayLayers = auto.NewHistogram(m.histogramOpts(
		"overlay_layers", "Layers in composed overlay scenes",
		prometheus.LinearBuckets(8, 8, 8),
	))
	m.handleRefreshes = auto.NewCounterVec(
		m.counterOpts("handle_refreshes_total", "Stale source handle refreshes by result"),
		[]string{"result"},
	)
	m.compositionError = auto.NewCounterVec(
		m.counterOpts("composition_errors_total", "Composition build failures by reason"),
		[]string{"reason"},
	)

	m.repositoryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_latency_milliseconds", "Project store latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)
	m.projectsTotal = auto.NewGauge(m.gaugeOpts("projects_total", "Projects in the catalog"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
}

// Timeline metrics

// RecordTimelineMutation counts a successful add, update or remove.
func RecordTimelineMutation(operation string) {
	globalManager.timelineMutations.WithLabelValues(operation).Inc()
}

// RecordTimelineUndo counts an undo that changed the timeline.
func RecordTimelineUndo() {
	globalManager.timelineUndo.Inc()
}

// RecordTimelineRedo counts a redo that changed the timeline.
func RecordTimelineRedo() {
	globalManager.timelineRedo.Inc()
}

// UpdateTimelineEvents sets the number of events in the active timeline.
func UpdateTimelineEvents(count int) {
	globalManager.timelineEvents.Set(float64(count))
}

// Export metrics

// RecordExportStarted counts a new export run and marks it active.
func RecordExportStarted() {
	globalManager.exportsStarted.Inc()
	globalManager.exportActive.Set(1)
	globalManager.exportProgress.Set(0)
}

// RecordExportRejected counts a start ignored because an export is running.
func RecordExportRejected() {
	globalManager.exportsRejected.Inc()
}

// RecordExportFinished records the outcome and wall time of a run.
func RecordExportFinished(outcome string, seconds float64) {
	globalManager.exportsFinished.WithLabelValues(outcome).Inc()
	globalManager.exportDuration.Observe(seconds)
	globalManager.exportActive.Set(0)
}

// UpdateExportProgress sets the progress of the running export.
func UpdateExportProgress(progress float64) {
	globalManager.exportProgress.Set(progress)
}

// RecordOverlayLayers observes the layer count of a composed scene.
func RecordOverlayLayers(count int) {
	globalManager.overlayLayers.Observe(float64(count))
}

// RecordHandleRefresh counts a stale handle refresh attempt.
func RecordHandleRefresh(result string) {
	globalManager.handleRefreshes.WithLabelValues(result).Inc()
}

// RecordCompositionError counts a composition build failure.
func RecordCompositionError(reason string) {
	globalManager.compositionError.WithLabelValues(reason).Inc()
}

// Repository metrics

// RecordRepositoryLatency observes a store operation in milliseconds.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateProjectsTotal sets the catalog size.
func UpdateProjectsTotal(count int) {
	globalManager.projectsTotal.Set(float64(count))
}

// HTTP metrics

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
