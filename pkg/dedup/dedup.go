// Package dedup collapses concurrent identical calls into one execution.
package dedup

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Group runs at most one call per key at a time. Callers that arrive while a
// call for their key is in flight wait for it and receive the same result,
// error included. Keys are forgotten as soon as the call settles; Group is
// not a cache.
type Group[T any] struct {
	flight singleflight.Group

	mu      sync.Mutex
	seq     uint64
	pending map[string]uint64
}

// New returns an empty Group.
func New[T any]() *Group[T] {
	return &Group[T]{pending: make(map[string]uint64)}
}

// Do executes work under key, or joins the in-flight execution for key.
// shared reports whether the result was delivered to more than one caller.
func (g *Group[T]) Do(key string, work func() (T, error)) (v T, err error, shared bool) {
	res, err, shared := g.flight.Do(key, func() (any, error) {
		g.mu.Lock()
		g.seq++
		gen := g.seq
		g.pending[key] = gen
		g.mu.Unlock()
		defer func() {
			g.mu.Lock()
			// A Reset may have handed key to a newer call.
			if g.pending[key] == gen {
				delete(g.pending, key)
			}
			g.mu.Unlock()
		}()
		return work()
	})
	if res != nil {
		v = res.(T)
	}
	return v, err, shared
}

// Pending returns the number of keys with a call in flight.
func (g *Group[T]) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Reset forgets every in-flight key. Calls already running finish normally,
// but new callers start a fresh execution instead of joining them.
func (g *Group[T]) Reset() {
	g.mu.Lock()
	keys := make([]string, 0, len(g.pending))
	for k := range g.pending {
		keys = append(keys, k)
	}
	clear(g.pending)
	g.mu.Unlock()

	for _, k := range keys {
		g.flight.Forget(k)
	}
}
