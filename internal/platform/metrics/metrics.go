// Package metrics provides Prometheus instrumentation for the pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CyclesTotal counts pipeline cycles by terminal status.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courtedge_cycles_total",
		Help: "Total pipeline cycles executed",
	}, []string{"status"})

	// CycleDuration tracks end-to-end cycle duration.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "courtedge_cycle_duration_seconds",
		Help:    "Pipeline cycle duration in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// SourceFetchesTotal counts collector fetches by source and outcome.
	SourceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courtedge_source_fetches_total",
		Help: "Collector fetches partitioned by source and outcome",
	}, []string{"source", "outcome"})

	// ReasoningRequestsTotal counts reasoning service calls by outcome.
	ReasoningRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courtedge_reasoning_requests_total",
		Help: "Reasoning service requests partitioned by outcome",
	}, []string{"outcome"})

	// ReasoningCacheHitsTotal counts reasoning responses served from cache.
	ReasoningCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtedge_reasoning_cache_hits_total",
		Help: "Reasoning responses served from the prompt cache",
	})

	// ReasoningCooldownSeconds reports the remaining upstream cooldown.
	ReasoningCooldownSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courtedge_reasoning_cooldown_seconds",
		Help: "Seconds until the reasoning client may dispatch again",
	})

	// FactorsUnavailable tracks unavailable factors in the latest snapshot.
	FactorsUnavailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courtedge_factors_unavailable",
		Help: "Unavailable factors across the latest snapshot",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courtedge_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courtedge_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per route. The path label is
// the ServeMux pattern that matched, keeping label cardinality bounded for
// routes with wildcards.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := routeLabel(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routeLabel prefers the matched pattern, which the mux fills in on the
// request during routing. Unmatched requests fall back to the raw path.
func routeLabel(r *http.Request) string {
	pattern := r.Pattern
	if pattern == "" {
		return r.URL.Path
	}
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	return pattern
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
