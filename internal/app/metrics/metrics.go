// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"bufio"
	"fmt"
	"net"
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
			Namespace: "cart_engine",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cart_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cart_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	cartMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cart_engine",
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Total number of cart mutations applied.",
		},
		[]string{"operation"},
	)

	cartExternalChanges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cart_engine",
			Subsystem: "cart",
			Name:      "external_changes_total",
			Help:      "Total number of cross-replica change notifications applied.",
		},
	)

	checkoutAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cart_engine",
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Total number of checkout reconciliation attempts.",
		},
		[]string{"outcome"},
	)

	checkoutDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cart_engine",
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "Duration of checkout reconciliation attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		cartMutations,
		cartExternalChanges,
		checkoutAttempts,
		checkoutDuration,
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

// RecordCartMutation counts one applied cart mutation.
func RecordCartMutation(operation string) {
	if operation == "" {
		operation = "unknown"
	}
	cartMutations.WithLabelValues(operation).Inc()
}

// RecordExternalChange counts one applied cross-replica change.
func RecordExternalChange() {
	cartExternalChanges.Inc()
}

// RecordCheckout records one reconciliation attempt.
func RecordCheckout(outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	checkoutAttempts.WithLabelValues(outcome).Inc()
	checkoutDuration.WithLabelValues(outcome).Observe(duration.Seconds())
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

// Hijack lets websocket upgrades pass through the instrumented writer.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// canonicalPath collapses identifier segments so label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "cart", "checkout":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		return "/" + parts[0] + "/" + parts[1]
	default:
		return "/" + parts[0]
	}
}
