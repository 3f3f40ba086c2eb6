// Package tracker keeps running aggregates of chat request outcomes.
package tracker

import (
	"sync"

	"github.com/pario-ai/parley/pkg/models"
)

// Tracker accumulates process-wide performance metrics.
type Tracker struct {
	mu sync.Mutex
	m  models.PerformanceMetrics
}

// New returns a zeroed Tracker.
func New() *Tracker {
	return &Tracker{}
}

// RecordRequest counts one request outcome. The running average covers every
// recorded request, cache hits included at their (usually zero) latency.
func (t *Tracker) RecordRequest(success bool, latencyMs int64, cacheHit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.m.TotalRequests++
	if success {
		t.m.SuccessfulRequests++
	} else {
		t.m.FailedRequests++
	}

	n := float64(t.m.TotalRequests)
	t.m.AverageLatencyMs = (t.m.AverageLatencyMs*(n-1) + float64(latencyMs)) / n

	if cacheHit {
		t.m.CacheHits++
	} else {
		t.m.CacheMisses++
	}
}

// RecordRateLimitHit counts an admission rejection. It does not touch the
// request counters.
func (t *Tracker) RecordRateLimitHit() {
	t.mu.Lock()
	t.m.RateLimitHits++
	t.mu.Unlock()
}

// Metrics returns a copy of the current counters.
func (t *Tracker) Metrics() models.PerformanceMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m
}

// Reset zeroes every counter.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.m = models.PerformanceMetrics{}
	t.mu.Unlock()
}
