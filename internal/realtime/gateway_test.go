package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/domain/types"
	"github.com/courierops/parcel-track-system/internal/service/tracking"
	"github.com/courierops/parcel-track-system/pkg/uuid"
	"github.com/gorilla/websocket"
)

type fakeVerifier struct {
	users map[string]*models.User
}

func (f *fakeVerifier) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	user, ok := f.users[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return user, nil
}

type fakeEngine struct {
	mu         sync.Mutex
	lastIngest tracking.IngestRequest
	ingestErr  error
	viewErr    error
}

func (f *fakeEngine) Ingest(ctx context.Context, agent *models.User, req tracking.IngestRequest) (*models.PositionSample, error) {
	f.mu.Lock()
	f.lastIngest = req
	f.mu.Unlock()

	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return &models.PositionSample{ParcelID: req.ParcelID, Latitude: req.Latitude, Longitude: req.Longitude}, nil
}

func (f *fakeEngine) AuthorizeView(ctx context.Context, user *models.User, parcelID string) error {
	return f.viewErr
}

func (f *fakeEngine) last() tracking.IngestRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastIngest
}

func testGatewayConfig() GatewayConfig {
	return GatewayConfig{
		AuthTimeout:   5 * time.Second,
		AuthAttempts:  2,
		SendQueueSize: 16,
		PingInterval:  time.Minute,
		PongWait:      time.Minute,
		WriteWait:     5 * time.Second,
	}
}

// wireFrame covers every outbound frame shape for test-side decoding.
type wireFrame struct {
	Type     string `json:"type"`
	Of       string `json:"of"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	ParcelID string `json:"parcelId"`
}

func dialGateway(t *testing.T, cfg GatewayConfig, verifier TokenVerifier, engine Engine) *websocket.Conn {
	t.Helper()

	g := NewGateway(cfg, NewRegistry(), verifier, engine, testLogger())

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		g.HandleConn(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f wireFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame failed: %v", err)
	}
	return f
}

func sendJSON(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestGateway_AuthHandshake(t *testing.T) {
	agent := &models.User{ID: uuid.New(), Role: types.RoleAgent}
	verifier := &fakeVerifier{users: map[string]*models.User{"good-token": agent}}
	conn := dialGateway(t, testGatewayConfig(), verifier, &fakeEngine{})

	sendJSON(t, conn, `{"type":"auth","token":"good-token"}`)

	frame := readFrame(t, conn)
	if frame.Type != FrameAck || frame.Of != FrameAuth {
		t.Fatalf("expected auth ack, got %+v", frame)
	}
}

func TestGateway_JoinBeforeAuthRejected(t *testing.T) {
	conn := dialGateway(t, testGatewayConfig(), &fakeVerifier{}, &fakeEngine{})

	sendJSON(t, conn, `{"type":"join","parcelId":"p-1"}`)

	frame := readFrame(t, conn)
	if frame.Type != FrameError || frame.Code != CodeAuthRequired {
		t.Fatalf("expected auth_required error, got %+v", frame)
	}
}

func TestGateway_AuthFailuresDisconnect(t *testing.T) {
	conn := dialGateway(t, testGatewayConfig(), &fakeVerifier{}, &fakeEngine{})

	for range 2 {
		sendJSON(t, conn, `{"type":"auth","token":"bogus"}`)
		frame := readFrame(t, conn)
		if frame.Type != FrameError || frame.Code != CodeAuthFailed {
			t.Fatalf("expected auth_failed error, got %+v", frame)
		}
	}

	// Second failure exhausts the attempt budget and closes the socket.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("connection must be closed after exhausted auth attempts")
	}
}

func TestGateway_JoinAndLocationUpdate(t *testing.T) {
	agent := &models.User{ID: uuid.New(), Role: types.RoleAgent}
	verifier := &fakeVerifier{users: map[string]*models.User{"good-token": agent}}
	engine := &fakeEngine{}
	conn := dialGateway(t, testGatewayConfig(), verifier, engine)

	sendJSON(t, conn, `{"type":"auth","token":"good-token"}`)
	if frame := readFrame(t, conn); frame.Type != FrameAck {
		t.Fatalf("expected auth ack, got %+v", frame)
	}

	sendJSON(t, conn, `{"type":"join","parcelId":"p-1"}`)
	frame := readFrame(t, conn)
	if frame.Type != FrameAck || frame.Of != FrameJoin || frame.ParcelID != "p-1" {
		t.Fatalf("expected join ack for p-1, got %+v", frame)
	}

	sendJSON(t, conn, `{"type":"agent_location_update","parcelId":"p-1","latitude":43.24,"longitude":76.91}`)
	frame = readFrame(t, conn)
	if frame.Type != FrameAck || frame.Of != FrameAgentLocationUpdate {
		t.Fatalf("expected location ack, got %+v", frame)
	}

	got := engine.last()
	if got.Transport != tracking.TransportWebSocket || got.ParcelID != "p-1" || got.Latitude != 43.24 {
		t.Fatalf("unexpected ingest request: %+v", got)
	}
	if got.OriginSession.IsZero() {
		t.Fatalf("socket reports must carry the origin session id")
	}
}

func TestGateway_LooseFrameFormat(t *testing.T) {
	agent := &models.User{ID: uuid.New(), Role: types.RoleAgent}
	verifier := &fakeVerifier{users: map[string]*models.User{"good-token": agent}}
	engine := &fakeEngine{}
	conn := dialGateway(t, testGatewayConfig(), verifier, engine)

	sendJSON(t, conn, "type=auth, token=good-token")
	if frame := readFrame(t, conn); frame.Type != FrameAck || frame.Of != FrameAuth {
		t.Fatalf("loose auth frame must be accepted, got %+v", frame)
	}

	sendJSON(t, conn, "type=agent_location_update, parcelId=p-1, latitude=43.24, longitude=76.91")
	if frame := readFrame(t, conn); frame.Type != FrameAck || frame.Of != FrameAgentLocationUpdate {
		t.Fatalf("loose location frame must be accepted, got %+v", frame)
	}

	got := engine.last()
	if got.ParcelID != "p-1" || got.Latitude != 43.24 || got.Longitude != 76.91 {
		t.Fatalf("loose frame values did not survive parsing: %+v", got)
	}
}

func TestGateway_MalformedFrameKeepsConnection(t *testing.T) {
	agent := &models.User{ID: uuid.New(), Role: types.RoleAgent}
	verifier := &fakeVerifier{users: map[string]*models.User{"good-token": agent}}
	conn := dialGateway(t, testGatewayConfig(), verifier, &fakeEngine{})

	sendJSON(t, conn, `{"type":`)
	frame := readFrame(t, conn)
	if frame.Type != FrameError || frame.Code != CodeValidation {
		t.Fatalf("expected validation error, got %+v", frame)
	}

	// The session survives the bad frame and can still authenticate.
	sendJSON(t, conn, `{"type":"auth","token":"good-token"}`)
	if frame := readFrame(t, conn); frame.Type != FrameAck || frame.Of != FrameAuth {
		t.Fatalf("expected auth ack after recovery, got %+v", frame)
	}
}

func TestGateway_AuthTimeout(t *testing.T) {
	cfg := testGatewayConfig()
	cfg.AuthTimeout = 100 * time.Millisecond
	conn := dialGateway(t, cfg, &fakeVerifier{}, &fakeEngine{})

	frame := readFrame(t, conn)
	if frame.Type != FrameError || frame.Code != CodeAuthRequired {
		t.Fatalf("expected auth_required on timeout, got %+v", frame)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("connection must be closed after the handshake deadline")
	}
}

func TestGateway_ForbiddenJoin(t *testing.T) {
	customer := &models.User{ID: uuid.New(), Role: types.RoleCustomer}
	verifier := &fakeVerifier{users: map[string]*models.User{"good-token": customer}}
	engine := &fakeEngine{viewErr: types.ErrForbidden}
	conn := dialGateway(t, testGatewayConfig(), verifier, engine)

	sendJSON(t, conn, `{"type":"auth","token":"good-token"}`)
	if frame := readFrame(t, conn); frame.Type != FrameAck {
		t.Fatalf("expected auth ack, got %+v", frame)
	}

	sendJSON(t, conn, `{"type":"join","parcelId":"p-9"}`)
	frame := readFrame(t, conn)
	if frame.Type != FrameError || frame.Code != CodeForbidden {
		t.Fatalf("expected forbidden error, got %+v", frame)
	}
}
