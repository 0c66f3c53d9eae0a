package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "caller"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Intake queue metrics
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acp_queue_depth",
			Help: "Current number of job notifications waiting for the worker",
		},
		[]string{"queue_name"},
	)

	queueEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acp_queue_enqueued_total",
			Help: "Total number of job notifications accepted into the queue",
		},
		[]string{"queue_name", "kind"},
	)

	queueRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acp_queue_rejected_total",
			Help: "Total number of job notifications refused by the queue",
		},
		[]string{"queue_name", "reason"},
	)

	// Worker metrics
	jobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acp_jobs_processed_total",
			Help: "Total number of queue items handled by the worker",
		},
		[]string{"role", "kind", "phase", "status"},
	)

	jobProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acp_job_processing_duration_seconds",
			Help:    "Time spent processing one queue item",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"role", "status"},
	)

	jobActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acp_job_actions_total",
			Help: "Total number of outbound job actions",
		},
		[]string{"action", "status"},
	)

	// ACP API metrics
	acpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acp_api_requests_total",
			Help: "Total number of ACP API requests",
		},
		[]string{"operation", "status"},
	)

	acpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acp_api_request_duration_seconds",
			Help:    "ACP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Cache metrics
	cacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"},
	)

	// Authentication metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "status"},
	)

	systemErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_errors_total",
			Help: "Total number of system errors",
		},
		[]string{"error_type", "component"},
	)
)

// HTTP Metrics
func RecordHTTPRequest(method, endpoint, statusCode, caller string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, caller).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration)
}

// Queue Metrics
func SetQueueDepth(queueName string, depth float64) {
	queueDepth.WithLabelValues(queueName).Set(depth)
}

func RecordEnqueue(queueName, kind string) {
	queueEnqueuedTotal.WithLabelValues(queueName, kind).Inc()
}

func RecordQueueRejection(queueName, reason string) {
	queueRejectedTotal.WithLabelValues(queueName, reason).Inc()
}

// Worker Metrics
func RecordJobProcessed(role, kind, phase, status string, duration float64) {
	jobsProcessedTotal.WithLabelValues(role, kind, phase, status).Inc()
	jobProcessingDuration.WithLabelValues(role, status).Observe(duration)
}

func RecordJobAction(action, status string) {
	jobActionsTotal.WithLabelValues(action, status).Inc()
}

// ACP API Metrics
func RecordACPRequest(operation, status string, duration float64) {
	acpRequestsTotal.WithLabelValues(operation, status).Inc()
	acpRequestDuration.WithLabelValues(operation).Observe(duration)
}

// Cache Metrics
func RecordCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// Authentication Metrics
func RecordAuthAttempt(method, status string) {
	authAttemptsTotal.WithLabelValues(method, status).Inc()
}

func RecordSystemError(errorType, component string) {
	systemErrorsTotal.WithLabelValues(errorType, component).Inc()
}
