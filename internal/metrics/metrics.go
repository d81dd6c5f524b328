// Package metrics exposes Prometheus collectors for the crawl service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec
	engineRequestsTotal          *prometheus.CounterVec
	engineRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the Prometheus collectors with the default registry.
// It is safe to call multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagemill_http_requests_total",
				Help: "Total HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagemill_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		engineRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagemill_engine_requests_total",
				Help: "Total Crawling Engine calls, labeled by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		)

		engineRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagemill_engine_request_duration_seconds",
				Help:    "Histogram of Crawling Engine call latencies, labeled by operation.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 15, 30, 60, 120, 300},
			},
			[]string{"operation"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveEngineRequest records one Crawling Engine call.
func ObserveEngineRequest(operation, outcome string, duration time.Duration) {
	if engineRequestsTotal == nil {
		return
	}
	engineRequestsTotal.WithLabelValues(operation, outcome).Inc()
	engineRequestDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}
