// Package metrics exposes the Prometheus collectors for the trace layer.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trace_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trace_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trace_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	productsRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trace_layer",
			Subsystem: "ledger",
			Name:      "products_registered_total",
			Help:      "Total number of products registered.",
		},
	)

	eventsLogged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trace_layer",
			Subsystem: "ledger",
			Name:      "events_logged_total",
			Help:      "Total number of lifecycle events accepted.",
		},
		[]string{"event_type"},
	)

	authorizationChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trace_layer",
			Subsystem: "ledger",
			Name:      "authorization_changes_total",
			Help:      "Total number of authorization grants and revocations.",
		},
		[]string{"action"},
	)

	operationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trace_layer",
			Subsystem: "ledger",
			Name:      "operation_failures_total",
			Help:      "Total number of rejected ledger operations by error code.",
		},
		[]string{"operation", "code"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		productsRegistered,
		eventsLogged,
		authorizationChanges,
		operationFailures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordProductRegistered counts one accepted product registration.
func RecordProductRegistered() {
	productsRegistered.Inc()
}

// RecordEventLogged counts one accepted lifecycle event.
func RecordEventLogged(eventType string) {
	eventsLogged.WithLabelValues(eventType).Inc()
}

// RecordAuthorizationChange counts a grant or revocation.
func RecordAuthorizationChange(granted bool) {
	action := "revoke"
	if granted {
		action = "grant"
	}
	authorizationChanges.WithLabelValues(action).Inc()
}

// RecordOperationFailure counts a rejected operation by taxonomy code.
func RecordOperationFailure(operation, code string) {
	operationFailures.WithLabelValues(operation, code).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource IDs so metric cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] == "api" {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return "/"
	}
	switch parts[0] {
	case "products":
		if len(parts) == 1 {
			return "/products"
		}
		if len(parts) == 2 {
			return "/products/:id"
		}
		return "/products/:id/" + parts[2]
	case "admin":
		if len(parts) >= 3 && parts[1] == "authorizations" {
			return "/admin/authorizations/:address"
		}
		return "/" + strings.Join(parts, "/")
	default:
		return "/" + strings.Join(parts, "/")
	}
}
