package tracker

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest(t *testing.T) {
	tr := New()
	tr.RecordRequest(true, 100, false)
	tr.RecordRequest(false, 200, false)
	tr.RecordRequest(true, 0, true)

	m := tr.Metrics()
	assert.Equal(t, int64(3), m.TotalRequests)
	assert.Equal(t, int64(2), m.SuccessfulRequests)
	assert.Equal(t, int64(1), m.FailedRequests)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, int64(2), m.CacheMisses)
	// The cache hit's zero latency pulls the average down.
	assert.InDelta(t, 100.0, m.AverageLatencyMs, 1e-9)
}

func TestRunningAverage(t *testing.T) {
	tr := New()
	samples := []int64{10, 20, 30, 40}
	for _, s := range samples {
		tr.RecordRequest(true, s, false)
	}
	assert.InDelta(t, 25.0, tr.Metrics().AverageLatencyMs, 1e-9)
}

func TestRateLimitHitIsIndependent(t *testing.T) {
	tr := New()
	tr.RecordRateLimitHit()
	tr.RecordRateLimitHit()

	m := tr.Metrics()
	assert.Equal(t, int64(2), m.RateLimitHits)
	assert.Equal(t, int64(0), m.TotalRequests)
	assert.Equal(t, int64(0), m.CacheMisses)
}

func TestMetricsIsSnapshot(t *testing.T) {
	tr := New()
	snap := tr.Metrics()
	tr.RecordRequest(true, 5, false)
	assert.Equal(t, int64(0), snap.TotalRequests)
}

func TestReset(t *testing.T) {
	tr := New()
	tr.RecordRequest(true, 50, false)
	tr.RecordRateLimitHit()
	tr.Reset()
	assert.Zero(t, tr.Metrics())
}

func TestConcurrentRecord(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.RecordRequest(i%2 == 0, 10, false)
		}(i)
	}
	wg.Wait()

	m := tr.Metrics()
	assert.Equal(t, int64(100), m.TotalRequests)
	assert.Equal(t, int64(50), m.SuccessfulRequests)
	assert.InDelta(t, 10.0, m.AverageLatencyMs, 1e-9)
}

func TestCollector(t *testing.T) {
	tr := New()
	tr.RecordRequest(true, 40, false)
	tr.RecordRequest(false, 20, false)
	tr.RecordRateLimitHit()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(tr)))

	expected := `
# HELP parley_requests Chat requests recorded since the last reset, by outcome
# TYPE parley_requests gauge
parley_requests{outcome="failure"} 1
parley_requests{outcome="success"} 1
# HELP parley_rate_limit_rejections Chat requests rejected by the local rate limiter
# TYPE parley_rate_limit_rejections gauge
parley_rate_limit_rejections 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"parley_requests", "parley_rate_limit_rejections")
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}
