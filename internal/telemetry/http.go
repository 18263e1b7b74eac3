package telemetry

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prepwise",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	sessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepwise",
		Name:      "mock_session_transitions_total",
		Help:      "Mock session lifecycle transitions.",
	}, []string{"transition"})
)

// CountSessionTransition records a session lifecycle step
// (started, completed, expired, paused, resumed).
func CountSessionTransition(transition string) {
	sessionTransitions.WithLabelValues(transition).Inc()
}

// HTTPMiddleware logs each request and records its latency. The route
// template is used instead of the raw path so metrics cardinality stays
// bounded.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		status := c.Writer.Status()
		elapsed := time.Since(start)

		httpRequestDuration.
			WithLabelValues(c.Request.Method, route, httpStatusClass(status)).
			Observe(elapsed.Seconds())

		logger := slog.InfoContext
		if status >= 500 {
			logger = slog.ErrorContext
		}
		logger(c.Request.Context(), "http: request finished",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"elapsed", elapsed,
		)
	}
}

func httpStatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	}
	return "2xx"
}
