package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Business metrics
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_submissions_total",
			Help: "Total number of lead form submissions",
		},
		[]string{"kind", "result"}, // accepted, invalid, failed, busy
	)

	statusUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_status_updates_total",
			Help: "Total number of operator status changes",
		},
		[]string{"collection", "result"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_exports_total",
			Help: "Total number of submission exports",
		},
		[]string{"collection", "format"},
	)

	guardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_guard_decisions_total",
			Help: "Total number of admin guard decisions",
		},
		[]string{"outcome"}, // authorized, denied, no_session
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"}, // success, failure
	)
)

// Middleware records request count and latency per route
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip metrics endpoint itself
			if c.Path() == "/metrics" {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			code := strconv.Itoa(status)

			httpRequestsTotal.WithLabelValues(c.Request().Method, endpoint, code).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, endpoint, code).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the Prometheus scrape endpoint
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// RecordSubmission records the outcome of a form submission
func RecordSubmission(kind, result string) {
	submissionsTotal.WithLabelValues(kind, result).Inc()
}

// RecordStatusUpdate records an operator status change
func RecordStatusUpdate(collection string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	statusUpdatesTotal.WithLabelValues(collection, result).Inc()
}

// RecordExport records a download or archive of submissions
func RecordExport(collection, format string) {
	exportsTotal.WithLabelValues(collection, format).Inc()
}

// RecordGuardDecision records an admin guard outcome
func RecordGuardDecision(outcome string) {
	guardDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordAuthAttempt records an authentication attempt
func RecordAuthAttempt(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	authAttemptsTotal.WithLabelValues(status).Inc()
}
