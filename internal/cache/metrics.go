package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tier identifies one of the two backing stores
type Tier string

const (
	// TierRedis is the distributed networked tier
	TierRedis Tier = "redis"
	// TierLocal is the in-process tier
	TierLocal Tier = "local"
)

// Metrics accumulates cache performance counters. Counters are atomic so
// concurrent operations never require a shared lock; derived values (hit
// rate, uptime) are computed at read time, never stored. Counters are also
// mirrored to Prometheus so the ops endpoint can expose them.
type Metrics struct {
	hits        atomic.Int64
	misses      atomic.Int64
	redisHits   atomic.Int64
	redisMisses atomic.Int64
	localHits   atomic.Int64
	localMisses atomic.Int64
	evictions   atomic.Int64
	errors      atomic.Int64

	respMu        sync.Mutex
	avgResponseMs float64

	startTime time.Time

	promHits       *prometheus.CounterVec
	promTierMisses *prometheus.CounterVec
	promMisses     prometheus.Counter
	promErrors     prometheus.Counter
	promEvictions  prometheus.Counter
	promResponse   prometheus.Histogram
}

// Snapshot is a point-in-time view of the counters with derived values
type Snapshot struct {
	Hits              int64   `json:"hits"`
	Misses            int64   `json:"misses"`
	RedisHits         int64   `json:"redis_hits"`
	RedisMisses       int64   `json:"redis_misses"`
	LocalHits         int64   `json:"local_hits"`
	LocalMisses       int64   `json:"local_misses"`
	Evictions         int64   `json:"evictions"`
	Errors            int64   `json:"errors"`
	HitRate           float64 `json:"hit_rate"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector registering its Prometheus mirrors with reg.
// A nil reg keeps the mirrors on a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),
		promHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medcache_hits_total",
			Help: "Cache hits by tier",
		}, []string{"tier"}),
		promTierMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medcache_tier_misses_total",
			Help: "Per-tier cache misses",
		}, []string{"tier"}),
		promMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "medcache_misses_total",
			Help: "Get operations that missed every tier",
		}),
		promErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "medcache_errors_total",
			Help: "Tier I/O and serialization failures",
		}),
		promEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "medcache_evictions_total",
			Help: "Entries evicted by the optimizer",
		}),
		promResponse: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "medcache_response_time_ms",
			Help:    "Cache operation response time in milliseconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
		}),
	}
}

// RecordHit counts a hit on the given tier
func (m *Metrics) RecordHit(tier Tier) {
	m.hits.Add(1)
	switch tier {
	case TierRedis:
		m.redisHits.Add(1)
	case TierLocal:
		m.localHits.Add(1)
	}
	m.promHits.WithLabelValues(string(tier)).Inc()
}

// RecordTierMiss counts a miss on a single tier; the operation may still hit
// a later tier
func (m *Metrics) RecordTierMiss(tier Tier) {
	switch tier {
	case TierRedis:
		m.redisMisses.Add(1)
	case TierLocal:
		m.localMisses.Add(1)
	}
	m.promTierMisses.WithLabelValues(string(tier)).Inc()
}

// RecordMiss counts a get that missed every tier
func (m *Metrics) RecordMiss() {
	m.misses.Add(1)
	m.promMisses.Inc()
}

// RecordError counts a tier I/O or serialization failure
func (m *Metrics) RecordError() {
	m.errors.Add(1)
	m.promErrors.Inc()
}

// RecordEvictions counts entries evicted by the optimizer
func (m *Metrics) RecordEvictions(n int) {
	if n <= 0 {
		return
	}
	m.evictions.Add(int64(n))
	m.promEvictions.Add(float64(n))
}

// RecordResponseTime folds a sample into the running average. The mean is
// incremental over n = hits + misses at the time of the call; the first
// sample seeds the average directly.
func (m *Metrics) RecordResponseTime(d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0
	n := m.hits.Load() + m.misses.Load()

	m.respMu.Lock()
	if n <= 1 {
		m.avgResponseMs = ms
	} else {
		m.avgResponseMs = (m.avgResponseMs*float64(n-1) + ms) / float64(n)
	}
	m.respMu.Unlock()

	m.promResponse.Observe(ms)
}

// Snapshot returns the current counters with derived hit rate and uptime
func (m *Metrics) Snapshot() Snapshot {
	hits := m.hits.Load()
	misses := m.misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	m.respMu.Lock()
	avg := m.avgResponseMs
	m.respMu.Unlock()

	return Snapshot{
		Hits:              hits,
		Misses:            misses,
		RedisHits:         m.redisHits.Load(),
		RedisMisses:       m.redisMisses.Load(),
		LocalHits:         m.localHits.Load(),
		LocalMisses:       m.localMisses.Load(),
		Evictions:         m.evictions.Load(),
		Errors:            m.errors.Load(),
		HitRate:           hitRate,
		AvgResponseTimeMs: avg,
		UptimeSeconds:     time.Since(m.startTime).Seconds(),
	}
}
