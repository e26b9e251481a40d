package hostinfo

import (
	"expvar"
	"sync/atomic"
	"time"
)

// CacheMetrics counts how a Cache served its callers. It uses Go's expvar
// package for exposition, available at /debug/vars when an HTTP server is
// running.
//
// Thread-safe for concurrent use.
type CacheMetrics struct {
	memoryHits   atomic.Int64
	fileHits     atomic.Int64
	queries      atomic.Int64
	fileWrites   atomic.Int64
	invalidation atomic.Int64
	errorsTotal  atomic.Int64

	queryLatencyNs    atomic.Int64
	queryLatencyCount atomic.Int64

	registered atomic.Bool
}

// NewCacheMetrics creates a new CacheMetrics instance.
// Call RegisterExpvar() to expose it via the /debug/vars endpoint.
func NewCacheMetrics() *CacheMetrics {
	return &CacheMetrics{}
}

// RegisterExpvar registers the metrics with Go's expvar package.
// Safe to call multiple times; subsequent calls are no-ops. expvar names
// are process-global, so only one CacheMetrics per process may register.
func (m *CacheMetrics) RegisterExpvar() {
	if m.registered.Swap(true) {
		return
	}

	expvar.Publish("hostinfo_cache_memory_hits_total", expvar.Func(func() any { return m.memoryHits.Load() }))
	expvar.Publish("hostinfo_cache_file_hits_total", expvar.Func(func() any { return m.fileHits.Load() }))
	expvar.Publish("hostinfo_cache_queries_total", expvar.Func(func() any { return m.queries.Load() }))
	expvar.Publish("hostinfo_cache_file_writes_total", expvar.Func(func() any { return m.fileWrites.Load() }))
	expvar.Publish("hostinfo_cache_invalidations_total", expvar.Func(func() any { return m.invalidation.Load() }))
	expvar.Publish("hostinfo_cache_errors_total", expvar.Func(func() any { return m.errorsTotal.Load() }))
	expvar.Publish("hostinfo_query_latency_avg_ms", expvar.Func(func() any {
		count := m.queryLatencyCount.Load()
		if count == 0 {
			return float64(0)
		}
		return float64(m.queryLatencyNs.Load()) / float64(count) / 1e6
	}))
}

// CacheMetricsSnapshot is a point-in-time copy of CacheMetrics.
type CacheMetricsSnapshot struct {
	MemoryHits    int64
	FileHits      int64
	Queries       int64
	FileWrites    int64
	Invalidations int64
	ErrorsTotal   int64

	QueryLatencyAvg time.Duration
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *CacheMetrics) Snapshot() CacheMetricsSnapshot {
	return CacheMetricsSnapshot{
		MemoryHits:      m.memoryHits.Load(),
		FileHits:        m.fileHits.Load(),
		Queries:         m.queries.Load(),
		FileWrites:      m.fileWrites.Load(),
		Invalidations:   m.invalidation.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		QueryLatencyAvg: safeDivide(m.queryLatencyNs.Load(), m.queryLatencyCount.Load()),
	}
}

// recordQuery records one platform query and how long it took.
func (m *CacheMetrics) recordQuery(d time.Duration) {
	m.queries.Add(1)
	m.queryLatencyNs.Add(int64(d))
	m.queryLatencyCount.Add(1)
}

func safeDivide(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}
