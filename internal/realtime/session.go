package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/pkg/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrSendQueueFull = errors.New("session send queue is full")
	ErrSessionClosed = errors.New("session is closed")
	ErrAlreadyBound  = errors.New("session identity already bound")
)

// Session is one live socket connection. The gateway owns its lifecycle;
// rooms and the engine only hold references.
//
// Outbound traffic goes through a bounded queue drained by a dedicated writer
// goroutine, so a slow consumer can never stall a broadcast for other rooms.
// A full queue is grounds for disconnection, not blocking.
type Session struct {
	id   uuid.UUID
	conn *websocket.Conn

	doneCtx context.Context
	cancel  context.CancelFunc

	sendCh      chan any
	closeOnce   sync.Once
	pumpRunning atomic.Bool

	mu           sync.Mutex
	identity     *models.User
	joined       map[string]struct{}
	lastActivity time.Time
}

// NewSession wraps an upgraded connection. queueSize bounds the outbound
// buffer per connection.
func NewSession(ctx context.Context, conn *websocket.Conn, queueSize int) *Session {
	ctx, cancel := context.WithCancel(ctx)

	return &Session{
		id:           uuid.New(),
		conn:         conn,
		doneCtx:      ctx,
		cancel:       cancel,
		sendCh:       make(chan any, queueSize),
		joined:       make(map[string]struct{}),
		lastActivity: time.Now(),
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.doneCtx.Done()
}

// BindIdentity binds the authenticated user exactly once.
func (s *Session) BindIdentity(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != nil {
		return ErrAlreadyBound
	}
	s.identity = user
	return nil
}

// Identity returns the bound user, or nil before the handshake completes.
func (s *Session) Identity() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// MarkJoined records a room subscription on the session. Returns false when
// the parcel was already joined, making re-join idempotent.
func (s *Session) MarkJoined(parcelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.joined[parcelID]; ok {
		return false
	}
	s.joined[parcelID] = struct{}{}
	return true
}

// JoinedRooms returns a copy of the parcel ids this session subscribed to.
func (s *Session) JoinedRooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([]string, 0, len(s.joined))
	for parcelID := range s.joined {
		rooms = append(rooms, parcelID)
	}
	return rooms
}

// Enqueue places an outbound message onto the session's queue without
// blocking. ErrSendQueueFull means the consumer is too slow and the caller
// should tear the session down.
func (s *Session) Enqueue(msg any) error {
	select {
	case <-s.doneCtx.Done():
		return ErrSessionClosed
	default:
	}

	select {
	case s.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// WritePump drains the send queue onto the wire and keeps the connection
// alive with pings. It returns when the session closes or a write fails,
// and owns closing the underlying connection so queued frames (final error
// frames included) are flushed before the socket goes away.
// Must run in its own goroutine, exactly one per session.
func (s *Session) WritePump(pingInterval, writeWait time.Duration) {
	s.pumpRunning.Store(true)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.conn.Close()

	for {
		select {
		case <-s.doneCtx.Done():
			s.drain(writeWait)
			return

		case msg := <-s.sendCh:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.Close()
				return
			}

		case <-ticker.C:
			if err := s.conn.WriteControl(
				websocket.PingMessage,
				nil,
				time.Now().Add(writeWait),
			); err != nil {
				s.Close()
				return
			}
		}
	}
}

// drain flushes whatever is still queued, then says goodbye properly.
func (s *Session) drain(writeWait time.Duration) {
	for {
		select {
		case msg := <-s.sendCh:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			s.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

// Close tears the session down. Safe to call multiple times. The write pump
// reacts by flushing the queue and closing the connection; sessions without
// a pump close the connection here directly.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.conn != nil && !s.pumpRunning.Load() {
			s.conn.Close()
		}
	})
	return nil
}
