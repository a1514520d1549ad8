package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kanso",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanso",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kanso",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	streakRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanso",
			Subsystem: "streaks",
			Name:      "recomputes_total",
			Help:      "Total number of streak recomputations.",
		},
		[]string{"frequency", "result"},
	)

	streakRecomputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kanso",
			Subsystem: "streaks",
			Name:      "recompute_duration_seconds",
			Help:      "Duration of a streak recomputation including storage round trips.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"frequency"},
	)

	streakQueueDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kanso",
			Subsystem: "streaks",
			Name:      "queue_dropped_total",
			Help:      "Recompute jobs dropped because the worker queue was full.",
		},
	)

	analyticsDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kanso",
			Subsystem: "analytics",
			Name:      "report_duration_seconds",
			Help:      "Duration of analytics report builds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		streakRecomputes,
		streakRecomputeDuration,
		streakQueueDropped,
		analyticsDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count, latency and in-flight requests per
// matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordStreakRecompute tracks one recomputation. Result is "ok",
// "config_error" or "storage_error".
func RecordStreakRecompute(frequency, result string, duration time.Duration) {
	streakRecomputes.WithLabelValues(frequency, result).Inc()
	streakRecomputeDuration.WithLabelValues(frequency).Observe(duration.Seconds())
}

func RecordStreakJobDropped() {
	streakQueueDropped.Inc()
}

func RecordAnalyticsReport(duration time.Duration) {
	analyticsDuration.Observe(duration.Seconds())
}
