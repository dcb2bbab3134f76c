package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task metrics
	TasksAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nntpqueue_tasks_added_total",
			Help: "Total number of tasks added to the queue",
		},
		[]string{"type"},
	)

	TasksRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nntpqueue_tasks_removed_total",
			Help: "Total number of tasks removed from the queue",
		},
		[]string{"type"},
	)

	TaskDispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nntpqueue_task_dispatch_latency_seconds",
			Help:    "Time between a task needing a connection and being given one",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"server"},
	)

	// Queue-level gauges
	ActiveTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nntpqueue_active_tasks",
			Help: "Current number of tasks holding at least one connection",
		},
	)

	TotalTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nntpqueue_total_tasks",
			Help: "Current number of tasks in the queue",
		},
	)

	QueueErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nntpqueue_queue_errors_total",
			Help: "Total number of non-fatal queue errors surfaced to listeners",
		},
		[]string{"server"},
	)

	TaskSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nntpqueue_task_saves_total",
			Help: "Total number of task-list persistence attempts",
		},
		[]string{"status"},
	)

	// Pool metrics
	PoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nntpqueue_pool_connections",
			Help: "Current connections per server by partition",
		},
		[]string{"server", "state"}, // state: active, idle, pending
	)

	PoolSpeedKiBps = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nntpqueue_pool_speed_kibps",
			Help: "Aggregate transfer speed per server in KiB/s",
		},
		[]string{"server"},
	)

	DialAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nntpqueue_dial_attempts_total",
			Help: "Total number of socket dial attempts",
		},
		[]string{"server", "status"},
	)

	DialDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nntpqueue_dial_duration_seconds",
			Help:    "Socket dial duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"server"},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nntpqueue_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nntpqueue_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Redis metrics (archive + pub/sub)
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nntpqueue_redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
		[]string{"operation"},
	)

	RedisErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nntpqueue_redis_errors_total",
			Help: "Total number of Redis errors",
		},
		[]string{"operation"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nntpqueue_websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)

	WebSocketMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nntpqueue_websocket_messages_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"type"},
	)
)

// RecordTaskAdded records a task entering the queue.
func RecordTaskAdded(taskType string) {
	TasksAdded.WithLabelValues(taskType).Inc()
}

// RecordTaskRemoved records a task leaving the queue.
func RecordTaskRemoved(taskType string) {
	TasksRemoved.WithLabelValues(taskType).Inc()
}

// RecordDispatchLatency records how long a task waited for a connection.
func RecordDispatchLatency(server string, seconds float64) {
	TaskDispatchLatency.WithLabelValues(server).Observe(seconds)
}

// SetTaskCounts updates the active/total task gauges.
func SetTaskCounts(active, total int) {
	ActiveTasks.Set(float64(active))
	TotalTasks.Set(float64(total))
}

// RecordQueueError records a non-fatal queue error for a server.
func RecordQueueError(server string) {
	QueueErrors.WithLabelValues(server).Inc()
}

// RecordTaskSave records a persistence attempt's outcome.
func RecordTaskSave(status string) {
	TaskSaves.WithLabelValues(status).Inc()
}

// SetPoolCounts updates the per-server connection partition gauges.
func SetPoolCounts(server string, active, idle, pending int) {
	PoolConnections.WithLabelValues(server, "active").Set(float64(active))
	PoolConnections.WithLabelValues(server, "idle").Set(float64(idle))
	PoolConnections.WithLabelValues(server, "pending").Set(float64(pending))
}

// SetPoolSpeed updates the aggregate transfer speed gauge for a server.
func SetPoolSpeed(server string, kibps float64) {
	PoolSpeedKiBps.WithLabelValues(server).Set(kibps)
}

// RecordDialAttempt records a socket dial outcome.
func RecordDialAttempt(server, status string, seconds float64) {
	DialAttempts.WithLabelValues(server, status).Inc()
	DialDuration.WithLabelValues(server).Observe(seconds)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordRedisOperation records a Redis operation's duration.
func RecordRedisOperation(operation string, duration float64) {
	RedisOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordRedisError records a Redis error.
func RecordRedisError(operation string) {
	RedisErrors.WithLabelValues(operation).Inc()
}

// SetWebSocketConnections sets the WebSocket connections gauge.
func SetWebSocketConnections(count float64) {
	WebSocketConnections.Set(count)
}

// RecordWebSocketMessage records a WebSocket message.
func RecordWebSocketMessage(msgType string) {
	WebSocketMessages.WithLabelValues(msgType).Inc()
}
