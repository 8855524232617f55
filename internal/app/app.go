package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courierops/parcel-track-system/config"
	"github.com/courierops/parcel-track-system/internal/adapter/http/handler"
	"github.com/courierops/parcel-track-system/internal/adapter/http/server"
	repo "github.com/courierops/parcel-track-system/internal/adapter/postgres"
	rabbitbroker "github.com/courierops/parcel-track-system/internal/adapter/rabbit"
	"github.com/courierops/parcel-track-system/internal/adapter/rediscache"
	"github.com/courierops/parcel-track-system/internal/realtime"
	"github.com/courierops/parcel-track-system/internal/service/auth"
	"github.com/courierops/parcel-track-system/internal/service/tracking"
	"github.com/courierops/parcel-track-system/pkg/logger"
	"github.com/courierops/parcel-track-system/pkg/postgres"
	"github.com/courierops/parcel-track-system/pkg/rabbit"
	"github.com/courierops/parcel-track-system/pkg/redis"
)

// App wires the tracking service together: storage, cache, broker, the
// realtime gateway and the HTTP server.
type App struct {
	postgresDB *postgres.PostgreDB
	redisDB    *redis.Redis
	rabbitMQ   *rabbit.RabbitMQ

	engine     *tracking.Service
	gateway    *realtime.Gateway
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

// NewApplication wires every dependency and returns the ready-to-run app.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	locationRepo := repo.NewPositionRepo(postgresDB.Pool)
	parcelRepo := repo.NewParcelRepo(postgresDB.Pool)
	userRepo := repo.NewUserRepo(postgresDB.Pool)

	// The latest-point cache is a lookaside: when Redis is down the service
	// still runs, reads just fall through to Postgres.
	var latestCache tracking.LatestCache
	redisDB, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.Warn(ctx, "Redis unavailable, running without latest-point cache", "err", err.Error())
		redisDB = nil
	} else {
		latestCache = rediscache.NewLatestCache(redisDB)
	}

	// Same for the bus mirror: broadcasting to live sockets never depends on
	// the broker being up.
	var publisher tracking.EventPublisher
	rabbitMQ, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Warn(ctx, "RabbitMQ unavailable, running without location event mirror", "err", err.Error())
		rabbitMQ = nil
	} else {
		broker := rabbitbroker.NewLocationBroker(rabbitMQ, log)
		if err := broker.Setup(ctx); err != nil {
			log.Error(ctx, "Failed to declare location exchange", err)
			return nil, err
		}
		publisher = broker
	}

	registry := realtime.NewRegistry()
	fanout := realtime.NewFanout(registry, log)

	engine := tracking.New(
		tracking.Config{ThrottleInterval: cfg.Tracking.ThrottleInterval},
		locationRepo,
		latestCache,
		parcelRepo,
		fanout,
		publisher,
		log,
	)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, userRepo, log)
	if err != nil {
		log.Error(ctx, "Failed to setup token service", err)
		return nil, err
	}

	gateway := realtime.NewGateway(realtime.GatewayConfig{
		AuthTimeout:   cfg.WebSocket.AuthTimeout,
		AuthAttempts:  cfg.WebSocket.AuthAttempts,
		SendQueueSize: cfg.WebSocket.SendQueueSize,
		PingInterval:  cfg.WebSocket.PingInterval,
		PongWait:      cfg.WebSocket.PongWait,
		WriteWait:     cfg.WebSocket.WriteWait,
	}, registry, tokens, engine, log)

	trackingHandler := handler.NewTracking(engine, log)
	wsHandler := handler.NewWS(gateway, log)

	httpServer, err := server.New(cfg, trackingHandler, wsHandler, tokens, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	return &App{
		postgresDB: postgresDB,
		redisDB:    redisDB,
		rabbitMQ:   rabbitMQ,
		engine:     engine,
		gateway:    gateway,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.engine.Run(runCtx)
	a.httpServer.Run(ctx, errCh)

	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "tracking service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "tracking service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.gateway != nil {
		a.gateway.Close(closeCtx)
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(closeCtx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(closeCtx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close rabbitMQ", "error", err.Error())
		}
	}

	if a.redisDB != nil {
		if err := a.redisDB.Close(); err != nil {
			a.log.Warn(ctx, "Failed to close redis client", "error", err.Error())
		}
	}

	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
}
