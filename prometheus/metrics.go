package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abare_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "abare_login_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "abare_register_total",
			Help: "Total number of user registrations",
		},
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abare_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // invalid_credentials, invalid_token, inactive_user, forbidden, ...
	)

	// Store selection per request; fallback is "true" when the in-memory store stood in for the primary
	StoreSelectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abare_store_selections_total",
			Help: "Total number of store selections by backend",
		},
		[]string{"backend", "fallback"},
	)

	AnalysisProcessedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abare_analyses_processed_total",
			Help: "Total number of processed analyses by type",
		},
		[]string{"analysis_type"},
	)

	UploadBytesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "abare_upload_bytes_total",
			Help: "Total number of bytes accepted by document uploads",
		},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "abare_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "abare_db_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // find_one, find, insert_one, update_one, delete_one
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "abare_info",
			Help: "Information about the ABARE API",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(StoreSelectionCounter)
	prometheus.MustRegister(AnalysisProcessedCounter)
	prometheus.MustRegister(UploadBytesCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)
}

// SetInfo publishes the running version
func SetInfo(version string) {
	InfoGauge.Reset()
	InfoGauge.With(prometheus.Labels{"version": version}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures a store operation; use as defer TrackDBOperation("find")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			labels := prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   strconv.Itoa(status),
			}
			RequestDuration.With(labels).Observe(time.Since(start).Seconds())
			HTTPRequestCounter.With(labels).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordStoreSelection records which backend served a request
func RecordStoreSelection(backend string, fallback bool) {
	StoreSelectionCounter.With(prometheus.Labels{
		"backend":  backend,
		"fallback": strconv.FormatBool(fallback),
	}).Inc()
}

// RecordAnalysisProcessed records a completed analysis run
func RecordAnalysisProcessed(analysisType string) {
	AnalysisProcessedCounter.With(prometheus.Labels{"analysis_type": analysisType}).Inc()
}

// RecordUpload adds accepted upload bytes
func RecordUpload(size int64) {
	UploadBytesCounter.Add(float64(size))
}
