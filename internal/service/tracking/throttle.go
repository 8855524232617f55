package tracking

import (
	"sync"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/pkg/uuid"
)

// flushFunc receives the pending sample when a trailing flush fires.
type flushFunc func(sample models.PositionSample, origin uuid.UUID)

// throttle enforces at most one persisted-and-broadcast sample per key per
// interval. Samples arriving above the rate are coalesced keep-latest: the
// newest one replaces any pending sample and is flushed when the interval
// elapses, so a device in a tight GPS loop costs one pending slot, never
// unbounded memory, and the final report always lands.
type throttle struct {
	interval time.Duration
	flush    flushFunc

	mu      sync.Mutex
	entries map[string]*throttleEntry
}

type pendingSample struct {
	sample models.PositionSample
	origin uuid.UUID
}

type throttleEntry struct {
	lastFlush time.Time
	pending   *pendingSample
	timer     *time.Timer
}

func newThrottle(interval time.Duration, flush flushFunc) *throttle {
	return &throttle{
		interval: interval,
		flush:    flush,
		entries:  make(map[string]*throttleEntry),
	}
}

// Admit decides the fate of a sample. True means the caller persists and
// broadcasts it now; false means it was coalesced and will surface via the
// flush callback (or be superseded by a newer sample first).
func (t *throttle) Admit(key string, sample models.PositionSample, origin uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()

	entry, ok := t.entries[key]
	if !ok {
		entry = &throttleEntry{}
		t.entries[key] = entry
	}

	if now.Sub(entry.lastFlush) >= t.interval {
		entry.lastFlush = now
		// A newer sample supersedes anything still pending; cancel the
		// trailing flush so stale points never overtake fresh ones.
		entry.pending = nil
		if entry.timer != nil {
			entry.timer.Stop()
			entry.timer = nil
		}
		return true
	}

	entry.pending = &pendingSample{sample: sample, origin: origin}
	if entry.timer == nil {
		delay := t.interval - now.Sub(entry.lastFlush)
		entry.timer = time.AfterFunc(delay, func() {
			t.fire(key)
		})
	}
	return false
}

// fire flushes the pending sample for key, if one is still there.
func (t *throttle) fire(key string) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	entry.timer = nil

	pending := entry.pending
	entry.pending = nil
	if pending != nil {
		entry.lastFlush = time.Now()
	}
	t.mu.Unlock()

	if pending != nil {
		t.flush(pending.sample, pending.origin)
	}
}

// prune drops entries idle for longer than maxIdle.
func (t *throttle) prune(maxIdle time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	for key, entry := range t.entries {
		if entry.pending == nil && entry.timer == nil && entry.lastFlush.Before(cutoff) {
			delete(t.entries, key)
		}
	}
}

// size returns the number of tracked keys.
func (t *throttle) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
