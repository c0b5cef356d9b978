package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "library_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	bookOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_book_operations_total",
		Help: "Count of book lifecycle operations by operation and result",
	}, []string{"operation", "result"})

	checkedOutBooks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "library_books_checked_out",
		Help: "Number of books currently checked out (as observed by this process)",
	})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_auth_attempts_total",
		Help: "Count of bearer token verifications by mode and result",
	}, []string{"mode", "result"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_rate_limited_requests_total",
		Help: "Count of requests rejected by the rate limiter",
	})

	aiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_ai_requests_total",
		Help: "Count of AI assistant requests by operation and provider",
	}, []string{"operation", "provider"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveBookOperation counts a lifecycle operation outcome.
func ObserveBookOperation(operation, result string) {
	bookOperations.WithLabelValues(operation, result).Inc()
}

// IncrementCheckedOut increments the checked-out gauge.
func IncrementCheckedOut() {
	checkedOutBooks.Inc()
}

// DecrementCheckedOut decrements the checked-out gauge.
func DecrementCheckedOut() {
	checkedOutBooks.Dec()
}

// SetCheckedOut sets the checked-out gauge to a specific count.
func SetCheckedOut(count int) {
	if count < 0 {
		count = 0
	}
	checkedOutBooks.Set(float64(count))
}

// ObserveAuth counts a token verification.
func ObserveAuth(mode, result string) {
	authAttempts.WithLabelValues(mode, result).Inc()
}

// ObserveRateLimited counts a rejected request.
func ObserveRateLimited() {
	rateLimited.Inc()
}

// ObserveAI counts an AI assistant call.
func ObserveAI(operation, provider string) {
	aiRequests.WithLabelValues(operation, provider).Inc()
}
