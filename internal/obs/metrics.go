// Package obs holds the Prometheus collectors for the service.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ReconcileTotal counts reconciliation computations by outcome.
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roi_engine",
		Name:      "reconcile_total",
		Help:      "Reconciliation computations by outcome.",
	}, []string{"outcome"})

	// ReconcileDuration observes end-to-end reconciliation latency,
	// including upstream fetches.
	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "roi_engine",
		Name:      "reconcile_duration_seconds",
		Help:      "End-to-end reconciliation latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// CacheResults counts result-cache lookups by hit/miss.
	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roi_engine",
		Name:      "result_cache_total",
		Help:      "Result cache lookups by outcome.",
	}, []string{"outcome"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roi_engine",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by path and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path", "status"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }

// Instrument records request latency and status per route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		// the route pattern is only known after routing ran
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		httpDuration.WithLabelValues(path, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
