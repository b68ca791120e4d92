package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks reads served from the cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "careadmin_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses tracks reads that found no live entry (absent or expired)
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "careadmin_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheExpired tracks entries purged lazily on read after ExpiresAt passed
	CacheExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "careadmin_cache_expired_total",
			Help: "Total number of expired entries purged on read",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careadmin_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "prefix", "tags", "version", "clear", "stats", "decode"
	)

	// CacheInvalidatedKeys tracks entries removed by bulk invalidation
	CacheInvalidatedKeys = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careadmin_cache_invalidated_keys_total",
			Help: "Total number of cache entries removed by invalidation",
		},
		[]string{"kind"}, // "key", "prefix", "tags", "version"
	)

	// CacheOperationDuration tracks backend round-trip time per operation
	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careadmin_cache_operation_duration_seconds",
			Help:    "Cache operation duration in seconds by operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
		},
		[]string{"operation"},
	)

	// FetchFallbacks tracks read-through calls that bypassed a failing cache
	FetchFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "careadmin_cache_fetch_fallbacks_total",
			Help: "Total number of read-through calls that fell back to the source after a cache error",
		},
	)
)

func observe(operation string, start time.Time) {
	CacheOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
