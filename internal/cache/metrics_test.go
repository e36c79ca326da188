package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordHit(TierRedis)
	m.RecordHit(TierLocal)
	m.RecordHit(TierLocal)
	m.RecordTierMiss(TierRedis)
	m.RecordMiss()
	m.RecordError()
	m.RecordEvictions(3)

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.Hits)
	assert.Equal(t, int64(1), s.RedisHits)
	assert.Equal(t, int64(2), s.LocalHits)
	assert.Equal(t, int64(1), s.RedisMisses)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(3), s.Evictions)
}

func TestMetrics_HitRate(t *testing.T) {
	t.Run("zero before any call", func(t *testing.T) {
		m := NewMetrics(nil)
		assert.Zero(t, m.Snapshot().HitRate)
	})

	t.Run("hits over hits plus misses", func(t *testing.T) {
		m := NewMetrics(nil)
		m.RecordHit(TierLocal)
		m.RecordHit(TierLocal)
		m.RecordHit(TierLocal)
		m.RecordMiss()

		s := m.Snapshot()
		assert.InDelta(t, 0.75, s.HitRate, 1e-9)
		assert.GreaterOrEqual(t, s.HitRate, 0.0)
		assert.LessOrEqual(t, s.HitRate, 1.0)
	})
}

func TestMetrics_ResponseTimeAverage(t *testing.T) {
	m := NewMetrics(nil)

	// First sample seeds the average directly
	m.RecordHit(TierLocal)
	m.RecordResponseTime(10 * time.Millisecond)
	assert.InDelta(t, 10.0, m.Snapshot().AvgResponseTimeMs, 0.01)

	// Second sample folds in: (10*1 + 20) / 2
	m.RecordMiss()
	m.RecordResponseTime(20 * time.Millisecond)
	assert.InDelta(t, 15.0, m.Snapshot().AvgResponseTimeMs, 0.01)

	t.Run("sample without any recorded call does not divide by zero", func(t *testing.T) {
		fresh := NewMetrics(nil)
		fresh.RecordResponseTime(5 * time.Millisecond)
		assert.InDelta(t, 5.0, fresh.Snapshot().AvgResponseTimeMs, 0.01)
	})
}

func TestMetrics_Uptime(t *testing.T) {
	m := NewMetrics(nil)
	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, m.Snapshot().UptimeSeconds, 0.0)
}

func TestMetrics_PrometheusRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHit(TierRedis)
	m.RecordMiss()
	m.RecordResponseTime(time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "medcache_hits_total")
	assert.Contains(t, names, "medcache_misses_total")
	assert.Contains(t, names, "medcache_response_time_ms")
}

func TestMetrics_ConcurrentUpdates(t *testing.T) {
	m := NewMetrics(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordHit(TierLocal)
			m.RecordTierMiss(TierRedis)
			m.RecordResponseTime(time.Millisecond)
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	assert.Equal(t, int64(50), s.Hits)
	assert.Equal(t, int64(50), s.RedisMisses)
}
