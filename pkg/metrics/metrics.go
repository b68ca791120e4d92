// Package metrics provides the Prometheus registry and the admin server
// metrics of the cache service. Cache metrics are defined in pkg/cache to
// avoid circular dependencies.
//
// This package also documents every metric the service exports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer the admin metrics are registered with. It is
// the default registerer, which Handler serves alongside the cache metrics.
var Registry = prometheus.DefaultRegisterer

var (
	// AdminRequests tracks admin API requests by route and status code
	AdminRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "careadmin_admin_requests_total",
			Help: "Total number of admin API requests by route and status",
		},
		[]string{"route", "status"},
	)

	// AdminRequestDuration tracks admin API latency by route
	AdminRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careadmin_admin_request_duration_seconds",
			Help:    "Admin API request duration in seconds by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one admin request.
func ObserveRequest(route string, status int, start time.Time) {
	AdminRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	AdminRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - careadmin_cache_hits_total (Counter): Reads served from the cache
//   - careadmin_cache_misses_total (Counter): Reads with no live entry (absent or expired)
//   - careadmin_cache_expired_total (Counter): Entries purged lazily on read
//   - careadmin_cache_errors_total{operation} (Counter): Backend failures by store operation
//   - careadmin_cache_invalidated_keys_total{kind} (Counter): Entries removed by key, prefix, tags or version
//   - careadmin_cache_operation_duration_seconds{operation} (Histogram): Backend round-trip time
//   - careadmin_cache_fetch_fallbacks_total (Counter): Read-through calls served from the source after a cache error
//
// Admin Metrics (pkg/metrics):
//   - careadmin_admin_requests_total{route, status} (Counter): Admin API requests
//   - careadmin_admin_request_duration_seconds{route} (Histogram): Admin API latency
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(careadmin_cache_hits_total[5m])) /
//   (sum(rate(careadmin_cache_hits_total[5m])) + sum(rate(careadmin_cache_misses_total[5m])))
//
//   # Backend Error Rate
//   sum by (operation) (rate(careadmin_cache_errors_total[5m]))
//
//   # Fallback Rate (cache down)
//   rate(careadmin_cache_fetch_fallbacks_total[5m])
//
//   # P95 Backend Latency
//   histogram_quantile(0.95, sum by (le, operation) (rate(careadmin_cache_operation_duration_seconds_bucket[5m])))
