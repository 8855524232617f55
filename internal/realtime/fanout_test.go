package realtime

import (
	"context"
	"testing"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/pkg/logger"
	"github.com/courierops/parcel-track-system/pkg/uuid"
)

func testLogger() logger.Logger {
	return logger.InitLogger("test", logger.LevelError)
}

func TestFanout_DeliversToRoomOnly(t *testing.T) {
	r := NewRegistry()
	f := NewFanout(r, testLogger())

	watcher := newTestSession(4)
	other := newTestSession(4)
	defer watcher.Close()
	defer other.Close()

	watcher.MarkJoined("p-1")
	r.Join("p-1", watcher)
	other.MarkJoined("p-2")
	r.Join("p-2", other)

	sample := models.PositionSample{ParcelID: "p-1", Latitude: 43.2, Longitude: 76.9}
	delivered := f.Broadcast(context.Background(), sample, uuid.UUID{})

	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
	if len(watcher.sendCh) != 1 {
		t.Fatalf("watcher should have the frame queued")
	}
	if len(other.sendCh) != 0 {
		t.Fatalf("sessions in other rooms must not receive the frame")
	}

	frame, ok := (<-watcher.sendCh).(ParcelLocationFrame)
	if !ok {
		t.Fatalf("expected a ParcelLocationFrame")
	}
	if frame.Type != FrameParcelLocation || frame.ParcelID != "p-1" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestFanout_ExcludesOriginSession(t *testing.T) {
	r := NewRegistry()
	f := NewFanout(r, testLogger())

	origin := newTestSession(4)
	watcher := newTestSession(4)
	defer origin.Close()
	defer watcher.Close()

	for _, s := range []*Session{origin, watcher} {
		s.MarkJoined("p-1")
		r.Join("p-1", s)
	}

	sample := models.PositionSample{ParcelID: "p-1"}
	delivered := f.Broadcast(context.Background(), sample, origin.ID())

	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
	if len(origin.sendCh) != 0 {
		t.Fatalf("origin session must not receive its own report")
	}
	if len(watcher.sendCh) != 1 {
		t.Fatalf("watcher should have the frame queued")
	}
}

func TestFanout_DropsSlowConsumer(t *testing.T) {
	r := NewRegistry()
	f := NewFanout(r, testLogger())

	slow := newTestSession(1)
	healthy := newTestSession(4)
	defer slow.Close()
	defer healthy.Close()

	for _, s := range []*Session{slow, healthy} {
		s.MarkJoined("p-1")
		r.Join("p-1", s)
	}

	// Fill the slow session's queue so the next broadcast overflows it.
	if err := slow.Enqueue("stuck"); err != nil {
		t.Fatalf("priming enqueue failed: %v", err)
	}

	sample := models.PositionSample{ParcelID: "p-1"}
	delivered := f.Broadcast(context.Background(), sample, uuid.UUID{})

	if delivered != 1 {
		t.Fatalf("healthy subscriber should still be served, got %d deliveries", delivered)
	}

	select {
	case <-slow.Done():
	default:
		t.Fatalf("slow consumer must be closed")
	}

	subs := r.Subscribers("p-1")
	if len(subs) != 1 || subs[0].ID() != healthy.ID() {
		t.Fatalf("slow consumer must be removed from the room")
	}
}
