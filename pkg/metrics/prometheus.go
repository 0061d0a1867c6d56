// Package metrics provides Prometheus metrics for the tripsim simulation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for a simulation process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Mode choice
	choicesResolved   *prometheus.CounterVec
	choicesInfeasible *prometheus.CounterVec
	tripsDropped      *prometheus.CounterVec

	// Trip generation
	personsSampled        *prometheus.CounterVec
	tripsGenerated        *prometheus.CounterVec
	countSamplingFailures *prometheus.CounterVec

	// Calibration
	calibrationIterations prometheus.Counter
	calibrationMaxGap     prometheus.Gauge
	calibrationFactor     *prometheus.GaugeVec

	// Scheduler
	schedulerPoolSize     prometheus.Gauge
	schedulerActiveTasks  prometheus.Gauge
	schedulerTaskDuration *prometheus.HistogramVec
	schedulerTaskErrors   *prometheus.CounterVec
	stageDuration         *prometheus.HistogramVec

	// Runs
	runs *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tripsim",
		subsystem:        "sim",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
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

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.choicesResolved = auto.NewCounterVec(
		m.counterOpts("choices_resolved_total", "Trips whose mode was resolved"),
		[]string{"purpose", "mode"},
	)
	m.choicesInfeasible = auto.NewCounterVec(
		m.counterOpts("choices_infeasible_total", "Trips with no available alternative"),
		[]string{"purpose"},
	)
	m.tripsDropped = auto.NewCounterVec(
		m.counterOpts("trips_dropped_total", "Trips skipped because an end could not be located"),
		[]string{"purpose"},
	)

	m.personsSampled = auto.NewCounterVec(
		m.counterOpts("persons_sampled_total", "Persons whose trip count was sampled"),
		[]string{"purpose"},
	)
	m.tripsGenerated = auto.NewCounterVec(
		m.counterOpts("trips_generated_total", "Trips produced by the count models"),
		[]string{"purpose"},
	)
	m.countSamplingFailures = auto.NewCounterVec(
		m.counterOpts("count_sampling_failures_total", "Persons whose count sampling failed"),
		[]string{"purpose", "reason"},
	)

	m.calibrationIterations = auto.NewCounter(
		m.counterOpts("calibration_iterations_total", "Completed calibration iterations"),
	)
	m.calibrationMaxGap = auto.NewGauge(
		m.gaugeOpts("calibration_max_share_gap", "Largest absolute observed minus simulated share of the last iteration"),
	)
	m.calibrationFactor = auto.NewGaugeVec(
		m.gaugeOpts("calibration_factor", "Current additive calibration factor"),
		[]string{"region", "purpose", "mode"},
	)

	m.schedulerPoolSize = auto.NewGauge(
		m.gaugeOpts("scheduler_pool_size", "Configured number of concurrent tasks"),
	)
	m.schedulerActiveTasks = auto.NewGauge(
		m.gaugeOpts("scheduler_active_tasks", "Tasks currently running"),
	)
	m.schedulerTaskDuration = auto.NewHistogramVec(
		m.histogramOpts("scheduler_task_duration_seconds", "Task wall time"),
		[]string{"stage"},
	)
	m.schedulerTaskErrors = auto.NewCounterVec(
		m.counterOpts("scheduler_task_errors_total", "Tasks that returned an error or panicked"),
		[]string{"stage"},
	)
	m.stageDuration = auto.NewHistogramVec(
		m.histogramOpts("stage_duration_seconds", "Wall time of a full fork-join stage"),
		[]string{"stage"},
	)

	m.runs = auto.NewCounterVec(
		m.counterOpts("runs_total", "Simulation runs by outcome"),
		[]string{"status"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Status API requests"),
		[]string{"endpoint", "method", "status"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_seconds", "Status API request latency"),
		[]string{"endpoint", "method"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Heap bytes in use after the last run"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Number of goroutines after the last run"),
	)
}

// Mode choice.

// RecordChoiceResolved counts a trip that received a mode.
func RecordChoiceResolved(purpose, mode string) {
	if globalManager.enabled {
		globalManager.choicesResolved.WithLabelValues(purpose, mode).Inc()
	}
}

// RecordChoiceInfeasible counts a trip left without a mode.
func RecordChoiceInfeasible(purpose string) {
	if globalManager.enabled {
		globalManager.choicesInfeasible.WithLabelValues(purpose).Inc()
	}
}

// RecordTripDropped counts a trip with a null origin or destination.
func RecordTripDropped(purpose string) {
	if globalManager.enabled {
		globalManager.tripsDropped.WithLabelValues(purpose).Inc()
	}
}

// Trip generation.

// RecordTripCounts adds one sampled person and its trips.
func RecordTripCounts(purpose string, trips int) {
	if globalManager.enabled {
		globalManager.personsSampled.WithLabelValues(purpose).Inc()
		globalManager.tripsGenerated.WithLabelValues(purpose).Add(float64(trips))
	}
}

// RecordCountSamplingFailure counts a person whose count could not be drawn.
func RecordCountSamplingFailure(purpose, reason string) {
	if globalManager.enabled {
		globalManager.countSamplingFailures.WithLabelValues(purpose, reason).Inc()
	}
}

// Calibration.

// RecordCalibrationIteration marks an iteration as done and exports its largest share gap.
func RecordCalibrationIteration(maxGap float64) {
	if globalManager.enabled {
		globalManager.calibrationIterations.Inc()
		globalManager.calibrationMaxGap.Set(maxGap)
	}
}

// UpdateCalibrationFactor exports the current value of one factor.
func UpdateCalibrationFactor(region, purpose, mode string, value float64) {
	if globalManager.enabled {
		globalManager.calibrationFactor.WithLabelValues(region, purpose, mode).Set(value)
	}
}

// Scheduler.

// UpdateSchedulerPoolSize sets the pool size gauge.
func UpdateSchedulerPoolSize(size int) {
	if globalManager.enabled {
		globalManager.schedulerPoolSize.Set(float64(size))
	}
}

// RecordTaskStarted increments the active task gauge.
func RecordTaskStarted() {
	if globalManager.enabled {
		globalManager.schedulerActiveTasks.Inc()
	}
}

// RecordTaskFinished decrements the active task gauge and observes the task duration.
func RecordTaskFinished(stage string, seconds float64) {
	if globalManager.enabled {
		globalManager.schedulerActiveTasks.Dec()
		globalManager.schedulerTaskDuration.WithLabelValues(stage).Observe(seconds)
	}
}

// RecordTaskError counts a failed task.
func RecordTaskError(stage string) {
	if globalManager.enabled {
		globalManager.schedulerTaskErrors.WithLabelValues(stage).Inc()
	}
}

// RecordStageDuration observes the wall time of a whole stage.
func RecordStageDuration(stage string, seconds float64) {
	if globalManager.enabled {
		globalManager.stageDuration.WithLabelValues(stage).Observe(seconds)
	}
}

// Runs and system.

// RecordRun counts a finished run by status ("ok" or "failed").
func RecordRun(status string) {
	if globalManager.enabled {
		globalManager.runs.WithLabelValues(status).Inc()
	}
}

// RecordHTTPRequest counts a status API request.
func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	}
}

// RecordHTTPRequestDuration observes status API latency.
func RecordHTTPRequestDuration(endpoint, method string, seconds float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(seconds)
	}
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the custom registry for use in HTTP handlers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
