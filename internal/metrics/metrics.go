// Package metrics registers the Prometheus collectors for the HTTP surface
// and the recurrence engine.
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

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifedesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lifedesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method"},
	)

	templateExpansions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifedesk",
			Subsystem: "schedule",
			Name:      "template_expansions_total",
			Help:      "Total number of recurring template expansions.",
		},
		[]string{"status"},
	)

	expansionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lifedesk",
			Subsystem: "schedule",
			Name:      "expansion_duration_seconds",
			Help:      "Duration of one list-events merge, all templates included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		templateExpansions,
		expansionDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps a handler with request counting and timing.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	})
}

// RecordExpansion counts one template expansion by outcome.
func RecordExpansion(status string) {
	templateExpansions.WithLabelValues(status).Inc()
}

// ObserveMerge records the duration of one list-events merge.
func ObserveMerge(d time.Duration) {
	expansionDuration.Observe(d.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
