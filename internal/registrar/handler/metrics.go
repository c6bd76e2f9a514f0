package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	certRecordsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "certchain_records_total",
		Help: "Number of student records by lifecycle state.",
	}, []string{"state"})

	certRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certchain_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	certRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "certchain_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	certMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certchain_record_mutations_total",
		Help: "Total record lifecycle mutations by kind (create, edit, finalize).",
	}, []string{"kind"})

	certVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certchain_verifications_total",
		Help: "Total public verification lookups by result.",
	}, []string{"result"})

	certThrottledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certchain_throttled_requests_total",
		Help: "Requests rejected by the per-client rate limiter.",
	}, []string{"path"})
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

		certRequestsTotal.WithLabelValues(method, path, status).Inc()
		certRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordMutation records a successful lifecycle mutation.
func RecordMutation(kind string) {
	certMutationsTotal.WithLabelValues(kind).Inc()
}

// RecordVerification records a public verification lookup result.
func RecordVerification(found bool) {
	if found {
		certVerificationsTotal.WithLabelValues("found").Inc()
	} else {
		certVerificationsTotal.WithLabelValues("not_found").Inc()
	}
}

// RecordThrottle records a request rejected by the rate limiter.
func RecordThrottle(path string) {
	certThrottledTotal.WithLabelValues(path).Inc()
}

// SetRecordsGauge sets the record count gauge for a lifecycle state.
func SetRecordsGauge(state string, count float64) {
	certRecordsTotal.WithLabelValues(state).Set(count)
}
