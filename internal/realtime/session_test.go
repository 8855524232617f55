package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/domain/types"
)

func newTestSession(queueSize int) *Session {
	return NewSession(context.Background(), nil, queueSize)
}

func TestSession_BindIdentityOnce(t *testing.T) {
	s := newTestSession(1)
	defer s.Close()

	user := &models.User{Role: types.RoleAgent}
	if err := s.BindIdentity(user); err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	if err := s.BindIdentity(&models.User{Role: types.RoleAdmin}); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
	if got := s.Identity(); got != user {
		t.Fatalf("identity must stay the first bound user")
	}
}

func TestSession_MarkJoinedIdempotent(t *testing.T) {
	s := newTestSession(1)
	defer s.Close()

	if !s.MarkJoined("p-1") {
		t.Fatalf("first join should be recorded")
	}
	if s.MarkJoined("p-1") {
		t.Fatalf("second join for the same parcel should be a no-op")
	}
	if rooms := s.JoinedRooms(); len(rooms) != 1 || rooms[0] != "p-1" {
		t.Fatalf("unexpected joined rooms: %v", rooms)
	}
}

func TestSession_EnqueueBounded(t *testing.T) {
	s := newTestSession(2)
	defer s.Close()

	if err := s.Enqueue("a"); err != nil {
		t.Fatalf("enqueue 1: %v", err)
	}
	if err := s.Enqueue("b"); err != nil {
		t.Fatalf("enqueue 2: %v", err)
	}
	if err := s.Enqueue("c"); !errors.Is(err, ErrSendQueueFull) {
		t.Fatalf("expected ErrSendQueueFull, got %v", err)
	}
}

func TestSession_EnqueueAfterClose(t *testing.T) {
	s := newTestSession(4)
	s.Close()

	if err := s.Enqueue("late"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}

	select {
	case <-s.Done():
	default:
		t.Fatalf("Done must be closed after Close")
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	s := newTestSession(1)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
