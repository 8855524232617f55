package handler

import (
	"net/http"

	"github.com/courierops/parcel-track-system/internal/realtime"
	"github.com/courierops/parcel-track-system/pkg/logger"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/gorilla/websocket"
)

type WS struct {
	gateway  *realtime.Gateway
	upgrader websocket.Upgrader
	l        logger.Logger
}

func NewWS(gateway *realtime.Gateway, l logger.Logger) *WS {
	return &WS{
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a different origin; identity is
			// established by the in-band auth handshake, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

// Serve godoc
// @Summary      Live tracking socket
// @Description  Upgrades to WebSocket; clients must authenticate in-band within the handshake timeout
// @Tags         Tracking
// @Router       /ws [get]
func (h *WS) Serve(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_upgrade")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.l.Warn(ctx, "websocket upgrade failed", "err", err.Error())
		return
	}

	// Blocks for the lifetime of the connection; the server goroutine is the
	// session's read pump.
	h.gateway.HandleConn(ctx, conn)
}
