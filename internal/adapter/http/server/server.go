package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/courierops/parcel-track-system/config"
	"github.com/courierops/parcel-track-system/internal/adapter/http/handler"
	"github.com/courierops/parcel-track-system/internal/adapter/http/middleware"
	"github.com/courierops/parcel-track-system/pkg/logger"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
)

const serviceName = "tracking"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	tracking *handler.Tracking
	ws       *handler.WS
	health   *handler.Health
}

func New(
	cfg config.Config,
	trackingHandler *handler.Tracking,
	wsHandler *handler.WS,
	verifier middleware.TokenVerifier,
	log logger.Logger,
) (*API, error) {
	if verifier == nil {
		return nil, errors.New("token verifier is required")
	}

	routes := &handlers{
		tracking: trackingHandler,
		ws:       wsHandler,
		health:   handler.NewHealth(serviceName, log),
	}

	mid := middleware.NewMiddleware(verifier, log)

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      mid,
		addr:   cfg.HTTP.Addr(),
		log:    log,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	chain := a.m.Auth(a.mux)
	chain = a.m.Logging(chain)
	chain = a.m.Metrics(serviceName)(chain)
	chain = a.m.RequestID(chain)
	return a.m.Recover(chain)
}
