package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// WSConnections is the number of open realtime connections
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "ws_connections", Help: "Open realtime connections."},
	)
	// WSRejected counts handshakes refused for a bad or missing token
	WSRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ws_rejected_total", Help: "Realtime handshakes rejected by authentication."},
	)
	// WSDropped counts messages dropped because a client's send queue was full
	WSDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ws_dropped_messages_total", Help: "Messages dropped for slow clients, by event."},
		[]string{"event"},
	)

	// TaskTicks counts periodic task cycles by task and outcome (ok, error, panic)
	TaskTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "task_ticks_total", Help: "Periodic task cycles by outcome."},
		[]string{"task", "outcome"},
	)
	// TaskDuration records how long one cycle of a periodic task took
	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "task_tick_duration_seconds", Help: "Periodic task cycle duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"task"},
	)
	// TaskDelivered counts messages handed to connections by a periodic task
	TaskDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "task_delivered_messages_total", Help: "Messages enqueued to connections by periodic tasks."},
		[]string{"task"},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors to the API registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(WSConnections)
		Registry.MustRegister(WSRejected)
		Registry.MustRegister(WSDropped)
		Registry.MustRegister(TaskTicks)
		Registry.MustRegister(TaskDuration)
		Registry.MustRegister(TaskDelivered)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Middleware records request count and latency labelled by route template,
// so /buses/:busId does not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
