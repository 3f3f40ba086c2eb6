package stream

import (
	"strings"
	"time"

	"github.com/pario-ai/parley/pkg/clock"
)

// DefaultBatchInterval is the minimum spacing between flushes.
const DefaultBatchInterval = 50 * time.Millisecond

// Batcher coalesces text fragments so consumers are called at most once per
// interval. The last-flush time starts at the zero time, so the first
// fragment is ready immediately. A Batcher is not safe for concurrent use.
type Batcher struct {
	interval  time.Duration
	clock     clock.Clock
	parts     []string
	lastFlush time.Time
}

// NewBatcher returns a Batcher. A nil clock uses the wall clock.
func NewBatcher(interval time.Duration, c clock.Clock) *Batcher {
	if c == nil {
		c = clock.Real()
	}
	if interval <= 0 {
		interval = DefaultBatchInterval
	}
	return &Batcher{interval: interval, clock: c}
}

// Add appends a fragment without flushing.
func (b *Batcher) Add(text string) {
	b.parts = append(b.parts, text)
}

// Pending reports whether fragments are waiting to be flushed.
func (b *Batcher) Pending() bool {
	return len(b.parts) > 0
}

// ShouldFlush reports whether fragments are pending and the interval has
// elapsed since the last flush.
func (b *Batcher) ShouldFlush() bool {
	return len(b.parts) > 0 && b.clock.Now().Sub(b.lastFlush) >= b.interval
}

// Flush joins and clears the pending fragments and restarts the interval.
// It returns "" when nothing is pending.
func (b *Batcher) Flush() string {
	text := strings.Join(b.parts, "")
	b.parts = b.parts[:0]
	b.lastFlush = b.clock.Now()
	return text
}
