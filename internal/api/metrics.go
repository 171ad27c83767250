package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	errataRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errata_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	errataRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "errata_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	errataCorrectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "errata_corrections_total",
		Help: "Total correction entries appended to the ledger.",
	})

	errataFeedBuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "errata_feed_builds_total",
		Help: "Total feed documents built.",
	})

	errataVerifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errata_chain_verifications_total",
		Help: "Total chain verification runs by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		errataRequestsTotal.WithLabelValues(method, path, status).Inc()
		errataRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordCorrectionAppend records a ledger append.
func RecordCorrectionAppend() {
	errataCorrectionsTotal.Inc()
}

// RecordFeedBuild records a feed export.
func RecordFeedBuild() {
	errataFeedBuildsTotal.Inc()
}

// RecordVerify records a chain verification result.
func RecordVerify(valid bool) {
	if valid {
		errataVerifyTotal.WithLabelValues("valid").Inc()
	} else {
		errataVerifyTotal.WithLabelValues("corrupted").Inc()
	}
}
