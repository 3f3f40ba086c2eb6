// Package ratelimit provides sliding-window admission control for outbound
// chat requests.
package ratelimit

import (
	"sync"
	"time"

	"github.com/pario-ai/parley/pkg/clock"
)

// Limiter admits at most limit requests in any trailing window. The scope is
// global: every caller shares one window.
type Limiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	clock      clock.Clock
	timestamps []time.Time
}

// New creates a Limiter. A nil clock uses the wall clock.
func New(limit int, window time.Duration, c clock.Clock) *Limiter {
	if c == nil {
		c = clock.Real()
	}
	return &Limiter{limit: limit, window: window, clock: c}
}

// CanMakeRequest prunes the window and reports whether another request fits.
// It does not reserve a slot.
func (l *Limiter) CanMakeRequest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.clock.Now())
	return len(l.timestamps) < l.limit
}

// RecordRequest appends the current time to the window unconditionally.
func (l *Limiter) RecordRequest() {
	l.mu.Lock()
	l.timestamps = append(l.timestamps, l.clock.Now())
	l.mu.Unlock()
}

// TryRecord records a request only if it fits, as one step. It returns
// false when the window is full.
func (l *Limiter) TryRecord() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	l.prune(now)
	if len(l.timestamps) >= l.limit {
		return false
	}
	l.timestamps = append(l.timestamps, now)
	return true
}

// RemainingRequests returns how many requests still fit in the window.
func (l *Limiter) RemainingRequests() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.clock.Now())
	return max(0, l.limit-len(l.timestamps))
}

// Reset clears the window.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.timestamps = nil
	l.mu.Unlock()
}

// prune drops timestamps older than the window from the front. Timestamps
// are appended in order, so the first one inside the window ends the scan.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}
