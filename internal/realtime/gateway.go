package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/domain/types"
	"github.com/courierops/parcel-track-system/internal/service/tracking"
	"github.com/courierops/parcel-track-system/pkg/logger"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/courierops/parcel-track-system/pkg/metrics"
	"github.com/courierops/parcel-track-system/pkg/uuid"
	"github.com/gorilla/websocket"
)

const serviceName = "tracking"

type (
	// TokenVerifier validates a handshake token against the external auth
	// collaborator and resolves the identity behind it.
	TokenVerifier interface {
		VerifyToken(ctx context.Context, token string) (*models.User, error)
	}

	// Engine is the ingest and fan-out entry point shared with the REST path.
	Engine interface {
		Ingest(ctx context.Context, agent *models.User, req tracking.IngestRequest) (*models.PositionSample, error)
		AuthorizeView(ctx context.Context, user *models.User, parcelID string) error
	}

	GatewayConfig struct {
		AuthTimeout   time.Duration
		AuthAttempts  int
		SendQueueSize int
		PingInterval  time.Duration
		PongWait      time.Duration
		WriteWait     time.Duration
	}
)

// Gateway accepts socket connections, runs the post-connect auth handshake
// and routes inbound frames to the engine and the room registry. It owns
// every Session exclusively.
type Gateway struct {
	registry *Registry
	verifier TokenVerifier
	engine   Engine
	cfg      GatewayConfig
	log      logger.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	wg       sync.WaitGroup
}

func NewGateway(cfg GatewayConfig, registry *Registry, verifier TokenVerifier, engine Engine, log logger.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		verifier: verifier,
		engine:   engine,
		cfg:      cfg,
		sessions: make(map[uuid.UUID]*Session),
		log:      log,
	}
}

// HandleConn runs the whole lifecycle of one upgraded connection: session
// creation, auth handshake timeout, read loop, teardown. It blocks until the
// connection is gone, so the HTTP handler goroutine doubles as the reader.
func (g *Gateway) HandleConn(ctx context.Context, conn *websocket.Conn) {
	session := NewSession(ctx, conn, g.cfg.SendQueueSize)

	ctx = wrap.WithSessionID(ctx, session.ID().String())
	g.log.Debug(wrap.WithAction(ctx, types.ActionWSConnect), "websocket session opened")

	g.addSession(session)
	metrics.WebSocketConnectionsGauge.WithLabelValues(serviceName).Inc()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		session.WritePump(g.cfg.PingInterval, g.cfg.WriteWait)
	}()

	// The handshake must complete within AuthTimeout or the connection is
	// closed with auth_required. Tolerates network jitter: early frames get
	// an error ack instead of an instant disconnect.
	authTimer := time.AfterFunc(g.cfg.AuthTimeout, func() {
		if session.Identity() != nil {
			return
		}
		session.Enqueue(ErrorFrame{Type: FrameError, Code: CodeAuthRequired, Message: "authentication timed out"})
		session.Close()
	})
	defer authTimer.Stop()

	g.readLoop(ctx, session)
	g.onDisconnect(ctx, session)
}

func (g *Gateway) readLoop(ctx context.Context, session *Session) {
	conn := session.conn
	conn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
		return nil
	})

	authFailures := 0

	for {
		select {
		case <-session.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			// Transport errors tear this session down only, never the process.
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.log.Debug(ctx, "websocket read failed", "err", err.Error())
			}
			return
		}

		session.Touch()
		conn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))

		frame, err := ParseFrame(raw)
		if err != nil {
			// Malformed frame: drop it, tell the sender, keep the connection.
			session.Enqueue(ErrorFrame{Type: FrameError, Code: CodeValidation, Message: "unparseable frame"})
			continue
		}

		if closed := g.onFrame(ctx, session, frame, &authFailures); closed {
			return
		}
	}
}

// onFrame routes one parsed frame. Returns true when the session must close.
func (g *Gateway) onFrame(ctx context.Context, session *Session, frame *Frame, authFailures *int) bool {
	switch frame.Type {
	case FrameAuth:
		return g.handleAuth(ctx, session, frame, authFailures)

	case FrameJoin:
		g.handleJoin(ctx, session, frame)
		return false

	case FrameAgentLocationUpdate:
		g.handleLocationUpdate(ctx, session, frame)
		return false

	default:
		// Unknown kinds are ignored for forward compatibility.
		g.log.Debug(ctx, "ignoring unknown frame type", "type", frame.Type)
		return false
	}
}

func (g *Gateway) handleAuth(ctx context.Context, session *Session, frame *Frame, authFailures *int) bool {
	ctx = wrap.WithAction(ctx, types.ActionWSAuth)

	if session.Identity() != nil {
		// Re-auth after a successful handshake is a no-op.
		session.Enqueue(AckFrame{Type: FrameAck, Of: FrameAuth})
		return false
	}

	if frame.Token == "" {
		session.Enqueue(ErrorFrame{Type: FrameError, Code: CodeValidation, Message: "auth frame missing token"})
		return false
	}

	user, err := g.verifier.VerifyToken(ctx, frame.Token)
	if err != nil {
		*authFailures++
		g.log.Warn(ctx, "websocket auth failed", "attempt", *authFailures)
		session.Enqueue(ErrorFrame{Type: FrameError, Code: CodeAuthFailed, Message: "invalid token"})

		if *authFailures >= g.cfg.AuthAttempts {
			session.Close()
			return true
		}
		return false
	}

	if err := session.BindIdentity(user); err != nil {
		session.Enqueue(AckFrame{Type: FrameAck, Of: FrameAuth})
		return false
	}

	g.log.Info(wrap.WithUserID(ctx, user.ID.String()), "websocket session authenticated", "role", user.Role)
	session.Enqueue(AckFrame{Type: FrameAck, Of: FrameAuth})
	return false
}

func (g *Gateway) handleJoin(ctx context.Context, session *Session, frame *Frame) {
	ctx = wrap.WithAction(ctx, types.ActionWSJoin)

	user := session.Identity()
	if user == nil {
		session.Enqueue(ErrorFrame{Type: FrameError, Code: CodeAuthRequired, Message: "join before auth"})
		return
	}

	if frame.ParcelID == "" {
		session.Enqueue(ErrorFrame{Type: FrameError, Code: CodeValidation, Message: "join frame missing parcelId"})
		return
	}

	ctx = wrap.WithParcelID(ctx, frame.ParcelID)

	if err := g.engine.AuthorizeView(ctx, user, frame.ParcelID); err != nil {
		g.log.Warn(ctx, "join rejected", "user_role", user.Role, "err", err.Error())
		session.Enqueue(errorFrameFor(err))
		return
	}

	// Idempotent: a second join for the same parcel keeps exactly one
	// subscription, so subscribers never see duplicate frames per ingest.
	if session.MarkJoined(frame.ParcelID) {
		g.registry.Join(frame.ParcelID, session)
		metrics.RoomSubscribersGauge.WithLabelValues(serviceName).Set(float64(g.registry.SubscriberCount()))
	}

	session.Enqueue(AckFrame{Type: FrameAck, Of: FrameJoin, ParcelID: frame.ParcelID})
}

func (g *Gateway) handleLocationUpdate(ctx context.Context, session *Session, frame *Frame) {
	ctx = wrap.WithAction(ctx, types.ActionWSIngest)

	user := session.Identity()
	if user == nil {
		session.Enqueue(ErrorFrame{Type: FrameError, Code: CodeAuthRequired, Message: "location update before auth"})
		return
	}

	if frame.ParcelID == "" || frame.Latitude == nil || frame.Longitude == nil {
		session.Enqueue(ErrorFrame{Type: FrameError, Code: CodeValidation, Message: "location update missing required fields"})
		return
	}

	ctx = wrap.WithParcelID(wrap.WithUserID(ctx, user.ID.String()), frame.ParcelID)

	_, err := g.engine.Ingest(ctx, user, tracking.IngestRequest{
		OriginSession: session.ID(),
		Transport:     tracking.TransportWebSocket,
		ParcelID:      frame.ParcelID,
		Latitude:      *frame.Latitude,
		Longitude:     *frame.Longitude,
		SpeedKph:      frame.SpeedKph,
		Heading:       frame.Heading,
	})
	if err != nil {
		g.log.Warn(ctx, "location update rejected", "err", err.Error())
		session.Enqueue(errorFrameFor(err))
		return
	}

	session.Enqueue(AckFrame{Type: FrameAck, Of: FrameAgentLocationUpdate, ParcelID: frame.ParcelID})
}

func (g *Gateway) onDisconnect(ctx context.Context, session *Session) {
	ctx = wrap.WithAction(ctx, types.ActionWSDisconnect)

	g.registry.LeaveAll(session)
	g.removeSession(session.ID())
	session.Close()

	metrics.WebSocketConnectionsGauge.WithLabelValues(serviceName).Dec()
	metrics.RoomSubscribersGauge.WithLabelValues(serviceName).Set(float64(g.registry.SubscriberCount()))

	g.log.Debug(ctx, "websocket session closed")
}

func (g *Gateway) addSession(session *Session) {
	g.mu.Lock()
	g.sessions[session.ID()] = session
	g.mu.Unlock()
}

func (g *Gateway) removeSession(id uuid.UUID) {
	g.mu.Lock()
	delete(g.sessions, id)
	g.mu.Unlock()
}

// SessionCount returns the number of live sessions.
func (g *Gateway) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// Close disconnects every live session and waits for the writer pumps.
func (g *Gateway) Close(ctx context.Context) {
	g.mu.Lock()
	sessions := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		sessions = append(sessions, s)
	}
	g.mu.Unlock()

	for _, s := range sessions {
		g.registry.LeaveAll(s)
		s.Close()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.log.Info(ctx, "all websocket sessions closed gracefully")
	case <-ctx.Done():
		g.log.Warn(ctx, "shutdown deadline reached while closing websocket sessions")
	}
}

// errorFrameFor maps service errors onto wire error codes.
func errorFrameFor(err error) ErrorFrame {
	frame := ErrorFrame{Type: FrameError, Message: err.Error()}

	switch {
	case errors.Is(err, types.ErrValidation):
		frame.Code = CodeValidation
	case errors.Is(err, types.ErrParcelNotFound):
		frame.Code = CodeParcelNotFound
	case errors.Is(err, types.ErrForbidden), errors.Is(err, types.ErrNotAssignedAgent):
		frame.Code = CodeForbidden
	case errors.Is(err, types.ErrPersistence):
		frame.Code = CodePersistence
	case errors.Is(err, types.ErrAuthRequired):
		frame.Code = CodeAuthRequired
	default:
		frame.Code = CodeInternal
	}
	return frame
}
