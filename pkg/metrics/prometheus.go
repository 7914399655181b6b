// Package metrics provides Prometheus metrics for the kira engagement service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the kira service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	eventsAdmitted  *prometheus.CounterVec
	eventsDuplicate *prometheus.CounterVec
	eventsExpired   *prometheus.CounterVec
	eventsInvalid   *prometheus.CounterVec
	pointsAwarded   *prometheus.CounterVec
	ingestLatency   prometheus.Histogram

	// Score store and leaderboard
	usersTotal        prometheus.Gauge
	usersByTier       *prometheus.GaugeVec
	storeShardCount   prometheus.Gauge
	storeApplyLatency prometheus.Histogram
	leaderboardQuery  prometheus.Histogram

	// Dedup filter
	dedupeEntries prometheus.Gauge
	dedupeEvicted prometheus.Counter
	dedupeSweeps  prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Producers
	producerEvents *prometheus.CounterVec
	producerErrors *prometheus.CounterVec

	// Claims
	claims        *prometheus.CounterVec
	tokensClaimed prometheus.Counter

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
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kira",
		subsystem:        "engagement",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.eventsAdmitted = m.counterVec("events_admitted_total", "Events admitted and scored", "platform")
	m.eventsDuplicate = m.counterVec("events_duplicate_total", "Events dropped as duplicates", "platform")
	m.eventsExpired = m.counterVec("events_expired_total", "Events dropped for being older than the dedup window", "platform")
	m.eventsInvalid = m.counterVec("events_invalid_total", "Events rejected by validation", "reason")
	m.pointsAwarded = m.counterVec("points_awarded_total", "Points added to user scores", "platform")
	m.ingestLatency = m.histogram("ingest_latency_seconds", "Time to ingest a single event")

	m.usersTotal = m.gauge("users_total", "Number of users with a score")
	m.usersByTier = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "users_by_tier", Help: "Number of users per tier",
		ConstLabels: m.constLabels,
	}, []string{"tier"})
	m.storeShardCount = m.gauge("store_shards", "Number of score store shards")
	m.storeApplyLatency = m.histogram("store_apply_latency_seconds", "Time to apply a weight to a user")
	m.leaderboardQuery = m.histogram("leaderboard_query_latency_seconds", "Time to build a leaderboard")

	m.dedupeEntries = m.gauge("dedupe_entries", "Event keys held by the dedup filter")
	m.dedupeEvicted = m.counter("dedupe_evicted_total", "Event keys evicted behind the watermark")
	m.dedupeSweeps = m.counter("dedupe_sweeps_total", "Dedup sweeps run")

	m.queueSize = m.gauge("queue_size", "Events waiting in the ingest queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the ingest queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Events enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Events rejected by a full or closed queue")

	m.workerCount = m.gauge("workers", "Configured ingest workers")
	m.workerActiveCount = m.gauge("workers_active", "Workers currently ingesting an event")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_seconds", "Time a worker spends on one event")
	m.workerErrors = m.counter("worker_errors_total", "Events a worker failed to ingest")

	m.producerEvents = m.counterVec("producer_events_total", "Events emitted by producers", "producer")
	m.producerErrors = m.counterVec("producer_errors_total", "Producer failures", "producer")

	m.claims = m.counterVec("claims_total", "Airdrop claims by result", "result")
	m.tokensClaimed = m.counter("tokens_claimed_total", "Airdrop tokens successfully disbursed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "http_request_duration_seconds",
		Help: "HTTP request duration", ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")
}

// RecordEventAdmitted records an admitted event and the points it awarded.
func RecordEventAdmitted(platform string, points int64) {
	globalManager.eventsAdmitted.WithLabelValues(platform).Inc()
	globalManager.pointsAwarded.WithLabelValues(platform).Add(float64(points))
}

// RecordEventDuplicate records a duplicate event.
func RecordEventDuplicate(platform string) {
	globalManager.eventsDuplicate.WithLabelValues(platform).Inc()
}

// RecordEventExpired records an event dropped behind the dedup watermark.
func RecordEventExpired(platform string) {
	globalManager.eventsExpired.WithLabelValues(platform).Inc()
}

// RecordEventInvalid records a rejected event.
func RecordEventInvalid(reason string) {
	globalManager.eventsInvalid.WithLabelValues(reason).Inc()
}

// RecordIngestLatency records end-to-end ingest time in seconds.
func RecordIngestLatency(seconds float64) {
	globalManager.ingestLatency.Observe(seconds)
}

// UpdateUsersTotal sets the number of scored users.
func UpdateUsersTotal(count int) {
	globalManager.usersTotal.Set(float64(count))
}

// UpdateTierCount sets the number of users in tier.
func UpdateTierCount(tier string, count int) {
	globalManager.usersByTier.WithLabelValues(tier).Set(float64(count))
}

// UpdateStoreShardCount sets the number of score store shards.
func UpdateStoreShardCount(count int) {
	globalManager.storeShardCount.Set(float64(count))
}

// RecordStoreApplyLatency records the time of one score apply in seconds.
func RecordStoreApplyLatency(seconds float64) {
	globalManager.storeApplyLatency.Observe(seconds)
}

// RecordLeaderboardQueryLatency records the time to build a leaderboard in seconds.
func RecordLeaderboardQueryLatency(seconds float64) {
	globalManager.leaderboardQuery.Observe(seconds)
}

// UpdateDedupeEntries sets the number of keys held by the dedup filter.
func UpdateDedupeEntries(count int64) {
	globalManager.dedupeEntries.Set(float64(count))
}

// RecordDedupeSweep records a sweep and how many keys it evicted.
func RecordDedupeSweep(evicted int) {
	globalManager.dedupeSweeps.Inc()
	globalManager.dedupeEvicted.Add(float64(evicted))
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue records an enqueued event.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue records a dequeued event.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError records an event the queue refused.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-event worker time in seconds.
func RecordWorkerProcessingLatency(seconds float64) {
	globalManager.workerProcessingLatency.Observe(seconds)
}

// RecordWorkerError records a failed ingest inside a worker.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordProducerEvent records an event emitted by producer.
func RecordProducerEvent(producer string) {
	globalManager.producerEvents.WithLabelValues(producer).Inc()
}

// RecordProducerError records a producer failure.
func RecordProducerError(producer string) {
	globalManager.producerErrors.WithLabelValues(producer).Inc()
}

// RecordClaim records a claim attempt by result.
func RecordClaim(result string) {
	globalManager.claims.WithLabelValues(result).Inc()
}

// RecordTokensClaimed adds successfully disbursed tokens.
func RecordTokensClaimed(amount int64) {
	globalManager.tokensClaimed.Add(float64(amount))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
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
