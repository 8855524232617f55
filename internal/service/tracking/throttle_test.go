package tracking

import (
	"sync"
	"testing"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/pkg/uuid"
)

type flushRecorder struct {
	mu      sync.Mutex
	samples []models.PositionSample
	origins []uuid.UUID
}

func (r *flushRecorder) record(sample models.PositionSample, origin uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample)
	r.origins = append(r.origins, origin)
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *flushRecorder) last() models.PositionSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples[len(r.samples)-1]
}

func sampleAt(lat float64) models.PositionSample {
	return models.PositionSample{ParcelID: "p-1", Latitude: lat, Longitude: 10}
}

func TestThrottle_FirstSampleAdmitted(t *testing.T) {
	rec := &flushRecorder{}
	th := newThrottle(time.Second, rec.record)

	if !th.Admit("k", sampleAt(1), uuid.UUID{}) {
		t.Fatalf("first sample must be admitted directly")
	}
}

func TestThrottle_CoalescesAboveRate(t *testing.T) {
	rec := &flushRecorder{}
	th := newThrottle(time.Second, rec.record)

	if !th.Admit("k", sampleAt(1), uuid.UUID{}) {
		t.Fatalf("first sample must be admitted")
	}
	for i := 2; i <= 5; i++ {
		if th.Admit("k", sampleAt(float64(i)), uuid.UUID{}) {
			t.Fatalf("sample %d within the interval must be coalesced", i)
		}
	}
	if rec.count() != 0 {
		t.Fatalf("no trailing flush should have fired yet")
	}
}

func TestThrottle_TrailingFlushKeepsLatest(t *testing.T) {
	rec := &flushRecorder{}
	th := newThrottle(50*time.Millisecond, rec.record)

	origin := uuid.New()

	if !th.Admit("k", sampleAt(1), origin) {
		t.Fatalf("first sample must be admitted")
	}
	// Rapid fire: everything after the first is coalesced keep-latest.
	for i := 2; i <= 50; i++ {
		th.Admit("k", sampleAt(float64(i)), origin)
	}

	deadline := time.After(time.Second)
	for rec.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("trailing flush never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := rec.count(); got != 1 {
		t.Fatalf("exactly one trailing flush expected, got %d", got)
	}
	last := rec.last()
	if last.Latitude != 50 {
		t.Fatalf("flush must carry the latest coalesced sample, got lat=%v", last.Latitude)
	}
	if rec.origins[0] != origin {
		t.Fatalf("flush must carry the origin session of the coalesced sample")
	}
}

func TestThrottle_IndependentKeys(t *testing.T) {
	rec := &flushRecorder{}
	th := newThrottle(time.Second, rec.record)

	if !th.Admit("agent-a/p-1", sampleAt(1), uuid.UUID{}) {
		t.Fatalf("key a must be admitted")
	}
	if !th.Admit("agent-b/p-1", sampleAt(2), uuid.UUID{}) {
		t.Fatalf("a different key must not share the budget")
	}
}

func TestThrottle_PruneKeepsActiveEntries(t *testing.T) {
	rec := &flushRecorder{}
	th := newThrottle(50*time.Millisecond, rec.record)

	th.Admit("old", sampleAt(1), uuid.UUID{})
	time.Sleep(80 * time.Millisecond)
	th.Admit("fresh", sampleAt(2), uuid.UUID{})

	th.prune(60 * time.Millisecond)

	if got := th.size(); got != 1 {
		t.Fatalf("expected only the fresh entry to survive, got %d", got)
	}
}
