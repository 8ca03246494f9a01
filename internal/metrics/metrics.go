// Package metrics registers the service's Prometheus collectors and serves /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zephyr_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zephyr_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AdmissionOutcomes counts verification endpoint decisions
	// (disabled, rate_limited, unauthorized, invalid, found, not_found, error).
	AdmissionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zephyr_admission_outcomes_total",
			Help: "Verification endpoint outcomes.",
		},
		[]string{"outcome"},
	)

	RateLimitEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zephyr_ratelimit_evictions_total",
			Help: "Rate-limit entries dropped by TTL sweep or size cap.",
		},
	)

	// WebhookEvents counts identity webhook deliveries by event type and outcome.
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zephyr_webhook_events_total",
			Help: "Identity webhook deliveries by event type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)

// Middleware records request counts and latency. Routes are labelled by their gin
// pattern so path parameters do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
