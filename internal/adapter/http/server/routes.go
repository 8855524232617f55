package server

import (
	"github.com/courierops/parcel-track-system/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("/health", a.routes.health.HealthCheck)

	a.setupSwaggerRoutes()
	a.setupMetricsRoute()

	// Live tracking socket; identity is established in-band after upgrade.
	a.mux.HandleFunc("GET /ws", a.routes.ws.Serve)

	// Trail reads are authorized per parcel inside the service (admin sees
	// any parcel, customers their own, agents their assignments).
	a.mux.Handle("GET /parcels/{parcel_id}/track", a.m.RequireRoles(a.routes.tracking.Trail))
	a.mux.Handle("GET /parcels/{parcel_id}/track/current", a.m.RequireRoles(a.routes.tracking.Current))

	// REST fallback for agents without a live socket
	a.mux.Handle("POST /agent/location", a.m.RequireRoles(a.routes.tracking.AgentLocation, types.RoleAgent))
}

// setupSwaggerRoutes configures the Swagger UI endpoint
func (a *API) setupSwaggerRoutes() {
	swaggerURL := httpSwagger.InstanceName("tracking")
	a.mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func (a *API) setupMetricsRoute() {
	a.mux.Handle("/metrics", promhttp.Handler())
}
