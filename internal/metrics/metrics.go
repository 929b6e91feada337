package metrics

import (
	"errors"
	"strconv"
	"time"

	"GreenCampusServer/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ledgerOperations counts every state-changing ledger call.
	// Labels: operation, result (ok or the domain error code)
	ledgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greencampus",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Total ledger operations by outcome",
	}, []string{"operation", "result"})

	ledgerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "greencampus",
		Subsystem: "ledger",
		Name:      "operation_duration_seconds",
		Help:      "Ledger operation latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation"})

	deliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greencampus",
		Subsystem: "notifications",
		Name:      "delivery_failures_total",
		Help:      "Post-commit notification deliveries that failed",
	}, []string{"sink"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greencampus",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "greencampus",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveHTTP records one served request. route is the matched mux
// pattern, never the raw path.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveLedger records one ledger operation that started at start.
func ObserveLedger(operation string, start time.Time, err error) {
	ledgerDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	ledgerOperations.WithLabelValues(operation, Result(err)).Inc()
}

func DeliveryFailed(sink string) {
	deliveryFailures.WithLabelValues(sink).Inc()
}

// Result maps err to a bounded label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrSelfTarget):
		return "self_target"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidKind):
		return "invalid_kind"
	case errors.Is(err, domain.ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	default:
		return "error"
	}
}
