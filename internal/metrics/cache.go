// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3uingest_cache_ops_total",
		Help: "Cache store operations by operation and result",
	}, []string{"op", "result"}) // op=load|save|invalidate|cleanup|trim, result=hit|miss|ok|error|corrupt|stale

	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "m3uingest_cache_entries",
		Help: "Number of cached playlists (last stats call)",
	}, []string{"backend"})
)

// RecordCacheOp counts a cache operation.
func RecordCacheOp(op, result string) {
	cacheOpsTotal.WithLabelValues(op, result).Inc()
}

// SetCacheEntries publishes the current cache size for backend.
func SetCacheEntries(backend string, n int) {
	cacheEntries.WithLabelValues(backend).Set(float64(n))
}
