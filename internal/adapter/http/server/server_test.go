package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/courierops/parcel-track-system/config"
	"github.com/courierops/parcel-track-system/internal/adapter/http/handler"
	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/domain/types"
	"github.com/courierops/parcel-track-system/internal/realtime"
	"github.com/courierops/parcel-track-system/internal/service/tracking"
	"github.com/courierops/parcel-track-system/pkg/logger"
	"github.com/courierops/parcel-track-system/pkg/uuid"
	"github.com/gorilla/websocket"
)

type stubVerifier struct {
	users map[string]*models.User
}

func (s *stubVerifier) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	user, ok := s.users[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return user, nil
}

type stubEngine struct{}

func (s *stubEngine) Ingest(ctx context.Context, agent *models.User, req tracking.IngestRequest) (*models.PositionSample, error) {
	return &models.PositionSample{ParcelID: req.ParcelID, Latitude: req.Latitude, Longitude: req.Longitude}, nil
}

func (s *stubEngine) AuthorizeView(ctx context.Context, user *models.User, parcelID string) error {
	return nil
}

func (s *stubEngine) Trail(ctx context.Context, user *models.User, parcelID string, limit int) ([]models.PositionSample, error) {
	return nil, nil
}

func (s *stubEngine) Current(ctx context.Context, user *models.User, parcelID string) (*models.PositionSample, error) {
	return nil, nil
}

// newTestAPI assembles the real server with the full middleware chain around
// an httptest listener, the same composition production runs behind.
func newTestAPI(t *testing.T, verifier *stubVerifier) *httptest.Server {
	t.Helper()

	log := logger.InitLogger("test", logger.LevelError)
	engine := &stubEngine{}

	gateway := realtime.NewGateway(realtime.GatewayConfig{
		AuthTimeout:   5 * time.Second,
		AuthAttempts:  3,
		SendQueueSize: 16,
		PingInterval:  time.Minute,
		PongWait:      time.Minute,
		WriteWait:     5 * time.Second,
	}, realtime.NewRegistry(), verifier, engine, log)

	api, err := New(
		config.Config{},
		handler.NewTracking(engine, log),
		handler.NewWS(gateway, log),
		verifier,
		log,
	)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	srv := httptest.NewServer(api.withMiddleware())
	t.Cleanup(srv.Close)
	return srv
}

// The upgrade must survive every writer-wrapping middleware in the chain;
// a wrapper that hides http.Hijacker turns every socket dial into a 500.
func TestServer_WebSocketUpgradeThroughMiddleware(t *testing.T) {
	agent := &models.User{ID: uuid.New(), Role: types.RoleAgent}
	verifier := &stubVerifier{users: map[string]*models.User{"good-token": agent}}
	srv := newTestAPI(t, verifier)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("upgrade through the assembled server failed (status %d): %v", status, err)
	}
	defer conn.Close()

	// The in-band handshake must work end to end as well.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth","token":"good-token"}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Type string `json:"type"`
		Of   string `json:"of"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if frame.Type != "ack" || frame.Of != "auth" {
		t.Fatalf("expected auth ack through the full chain, got %+v", frame)
	}
}

func TestServer_HealthThroughMiddleware(t *testing.T) {
	srv := newTestAPI(t, &stubVerifier{})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("responses must carry the request id header")
	}
}
