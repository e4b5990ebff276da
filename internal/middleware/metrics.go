// Package middleware provides HTTP middleware for the gateway.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquila_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aquila_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquila_asset_uploads_total",
			Help: "Asset uploads by outcome (created, deduplicated)",
		},
		[]string{"outcome"},
	)

	jobsDispatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aquila_jobs_dispatched_total",
			Help: "Total number of jobs dispatched",
		},
	)

	attachedStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aquila_attached_log_streams",
			Help: "Log streams currently attached over WebSocket",
		},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquila_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)
)

// RecordUpload counts an asset upload. Call from the asset handler so
// dedup hits and fresh writes are distinguishable.
func RecordUpload(created bool) {
	outcome := "deduplicated"
	if created {
		outcome = "created"
	}
	uploadsTotal.WithLabelValues(outcome).Inc()
}

// RecordJobDispatched counts a dispatched job.
func RecordJobDispatched() {
	jobsDispatchedTotal.Inc()
}

// StreamAttached tracks an open attachment; the returned func releases it.
func StreamAttached() func() {
	attachedStreams.Inc()
	return attachedStreams.Dec
}

// Metrics returns a middleware that records Prometheus metrics.
func Metrics() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			path := normalizePath(r)
			status := strconv.Itoa(wrapped.status)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())

			if wrapped.status >= 400 {
				errorType := "client_error"
				if wrapped.status >= 500 {
					errorType = "server_error"
				}
				errorsTotal.WithLabelValues(errorType).Inc()
			}
		})
	}
}

// normalizePath uses the chi route pattern so hashes and versions in the
// URL do not explode label cardinality.
func normalizePath(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
