package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/courierops/parcel-track-system/internal/adapter/http/handler/dto"
	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/service/tracking"
	"github.com/courierops/parcel-track-system/pkg/logger"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/courierops/parcel-track-system/pkg/validator"
)

type Tracking struct {
	service TrackingService
	l       logger.Logger
}

type TrackingService interface {
	Ingest(ctx context.Context, agent *models.User, req tracking.IngestRequest) (*models.PositionSample, error)
	Trail(ctx context.Context, user *models.User, parcelID string, limit int) ([]models.PositionSample, error)
	Current(ctx context.Context, user *models.User, parcelID string) (*models.PositionSample, error)
}

func NewTracking(service TrackingService, l logger.Logger) *Tracking {
	return &Tracking{
		service: service,
		l:       l,
	}
}

// Trail godoc
// @Summary      Parcel tracking trail
// @Description  Returns the parcel's recent position history, oldest first
// @Tags         Tracking
// @Produce      json
// @Param        parcel_id  path   string  true   "Parcel ID"
// @Param        limit      query  int     false  "Maximum number of points"
// @Success      200  {object}  map[string]any
// @Router       /parcels/{parcel_id}/track [get]
func (h *Tracking) Trail(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_parcel_trail")

	parcelID := r.PathValue("parcel_id")
	if parcelID == "" {
		errorResponse(w, http.StatusBadRequest, "parcel id must be provided")
		return
	}
	ctx = wrap.WithParcelID(ctx, parcelID)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	user := models.UserFromContext(ctx)
	points, err := h.service.Trail(ctx, user, parcelID, limit)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load parcel trail", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"parcelId": parcelID,
		"points":   points,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

// Current godoc
// @Summary      Current parcel position
// @Description  Returns the latest known position for a parcel, or null
// @Tags         Tracking
// @Produce      json
// @Param        parcel_id  path  string  true  "Parcel ID"
// @Success      200  {object}  map[string]any
// @Router       /parcels/{parcel_id}/track/current [get]
func (h *Tracking) Current(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_parcel_current")

	parcelID := r.PathValue("parcel_id")
	if parcelID == "" {
		errorResponse(w, http.StatusBadRequest, "parcel id must be provided")
		return
	}
	ctx = wrap.WithParcelID(ctx, parcelID)

	user := models.UserFromContext(ctx)
	point, err := h.service.Current(ctx, user, parcelID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load current position", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"parcelId": parcelID,
		"point":    point, // null when the parcel has no recorded points yet
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

// AgentLocation godoc
// @Summary      Report agent location
// @Description  REST fallback for agents without a live socket
// @Tags         Tracking
// @Accept       json
// @Produce      json
// @Param        request  body  dto.AgentLocationReq  true  "Position report"
// @Success      201  {object}  map[string]any
// @Router       /agent/location [post]
func (h *Tracking) AgentLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "report_agent_location")

	var req dto.AgentLocationReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	ctx = wrap.WithParcelID(ctx, req.ParcelID)

	user := models.UserFromContext(ctx)
	point, err := h.service.Ingest(ctx, user, tracking.IngestRequest{
		Transport: tracking.TransportREST,
		ParcelID:  req.ParcelID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		SpeedKph:  req.SpeedKph,
		Heading:   req.Heading,
	})
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to ingest agent location", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"point": point,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "agent location accepted", "parcel_id", req.ParcelID)
}
