package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task metrics
	TasksSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskqueue_tasks_submitted_total",
			Help: "Total number of tasks submitted",
		},
		[]string{"queue"},
	)

	TasksFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskqueue_tasks_fetched_total",
			Help: "Total number of tasks claimed by a fetch",
		},
		[]string{"queue"},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskqueue_tasks_completed_total",
			Help: "Total number of tasks that reached a terminal status",
		},
		[]string{"queue", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskqueue_task_duration_seconds",
			Help:    "Time from start_time to terminal status, in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"queue"},
	)

	TaskRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskqueue_task_retries_total",
			Help: "Total number of task retries (failed reports that requeued to pending)",
		},
		[]string{"queue"},
	)

	TasksSwept = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskqueue_tasks_swept_total",
			Help: "Total number of RUNNING tasks failed by the timeout sweeper",
		},
		[]string{"queue"},
	)

	// Queue metrics
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskqueue_queue_depth",
			Help: "Current number of pending tasks in a queue",
		},
		[]string{"queue"},
	)

	// Worker metrics
	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskqueue_active_workers",
			Help: "Current number of workers in ACTIVE status",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskqueue_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskqueue_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Store metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskqueue_store_operation_duration_seconds",
			Help:    "MongoDB operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskqueue_store_errors_total",
			Help: "Total number of MongoDB operation errors",
		},
		[]string{"operation"},
	)

	// Sanitizer metrics
	SanitizerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskqueue_sanitizer_rejections_total",
			Help: "Total number of queries/updates rejected by the sanitizer",
		},
		[]string{"reason"},
	)
)

// RecordTaskSubmission records a task submission.
func RecordTaskSubmission(queue string) {
	TasksSubmitted.WithLabelValues(queue).Inc()
}

// RecordTaskFetch records a successful fetch claim.
func RecordTaskFetch(queue string) {
	TasksFetched.WithLabelValues(queue).Inc()
}

// RecordTaskCompletion records a task reaching a terminal status.
func RecordTaskCompletion(queue, status string, duration float64) {
	TasksCompleted.WithLabelValues(queue, status).Inc()
	TaskDuration.WithLabelValues(queue).Observe(duration)
}

// RecordTaskRetry records a failed report that requeued to pending.
func RecordTaskRetry(queue string) {
	TaskRetries.WithLabelValues(queue).Inc()
}

// RecordTaskSwept records the sweeper failing a stalled task.
func RecordTaskSwept(queue string) {
	TasksSwept.WithLabelValues(queue).Inc()
}

// UpdateQueueDepth sets the queue depth gauge.
func UpdateQueueDepth(queue string, depth float64) {
	QueueDepth.WithLabelValues(queue).Set(depth)
}

// SetActiveWorkers sets the active workers gauge.
func SetActiveWorkers(count float64) {
	ActiveWorkers.Set(count)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordStoreOperation records a MongoDB operation's duration.
func RecordStoreOperation(operation string, duration float64) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordStoreError records a MongoDB operation error.
func RecordStoreError(operation string) {
	StoreErrors.WithLabelValues(operation).Inc()
}

// RecordSanitizerRejection records a query/update the sanitizer rejected.
func RecordSanitizerRejection(reason string) {
	SanitizerRejections.WithLabelValues(reason).Inc()
}
