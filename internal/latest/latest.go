// Package latest tracks monotonically increasing generation ids per key so that
// only the newest in-flight result for a key is applied.
package latest

import (
	"sync"
	"time"
)

type entry struct {
	gen     uint64
	touched time.Time
}

type Tracker struct {
	mu    sync.Mutex
	gens  map[string]*entry
	idle  time.Duration
	swept time.Time
	now   func() time.Time
}

// NewTracker returns a Tracker that keeps keys until they are forgotten.
func NewTracker() *Tracker {
	return NewExpiringTracker(0)
}

// NewExpiringTracker returns a Tracker that also drops keys with no Begin
// for idle. A generation begun before its key was dropped is not latest.
func NewExpiringTracker(idle time.Duration) *Tracker {
	return &Tracker{gens: make(map[string]*entry), idle: idle, now: time.Now}
}

// Begin starts a new generation for key and returns its id.
func (t *Tracker) Begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if t.idle > 0 && now.Sub(t.swept) >= t.idle {
		t.sweep(now)
	}
	e, ok := t.gens[key]
	if !ok {
		e = &entry{}
		t.gens[key] = e
	}
	e.gen++
	e.touched = now
	return e.gen
}

func (t *Tracker) sweep(now time.Time) {
	cutoff := now.Add(-t.idle)
	for k, e := range t.gens {
		if e.touched.Before(cutoff) {
			delete(t.gens, k)
		}
	}
	t.swept = now
}

// IsLatest reports whether gen is still the newest generation for key.
func (t *Tracker) IsLatest(key string, gen uint64) bool {
	return t.Current(key) == gen
}

// Current returns the newest generation id for key, zero if none began.
func (t *Tracker) Current(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.gens[key]; ok {
		return e.gen
	}
	return 0
}

// Forget drops key. Any generation issued before is no longer latest.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.gens, key)
}

// Len is the number of keys tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.gens)
}
