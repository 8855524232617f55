package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/domain/types"
	"github.com/courierops/parcel-track-system/pkg/logger"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/courierops/parcel-track-system/pkg/metrics"
	"github.com/courierops/parcel-track-system/pkg/uuid"
)

const serviceName = "tracking"

const (
	// DefaultTrailLimit bounds recent-trail responses when the client does
	// not ask for a specific size.
	DefaultTrailLimit = 100
	// MaxTrailLimit is the hard ceiling for a single trail query.
	MaxTrailLimit = 500
)

type Config struct {
	// ThrottleInterval is the minimum spacing between persisted-and-broadcast
	// samples per (agent, parcel) pair. One interval governs both paths:
	// every broadcast point is persisted first, so the durable trail can
	// always confirm what subscribers saw.
	ThrottleInterval time.Duration
}

// Service is the ingest and fan-out engine. Both the socket gateway and the
// REST fallback call Ingest, so the two transports are indistinguishable to
// subscribers and to the trail.
type Service struct {
	repo      LocationRepo
	cache     LatestCache
	parcels   ParcelDirectory
	broadcast Broadcaster
	publisher EventPublisher

	throttle *throttle
	ingestMu *keyedMutex

	cfg Config
	log logger.Logger
}

func New(cfg Config, repo LocationRepo, cache LatestCache, parcels ParcelDirectory, broadcast Broadcaster, publisher EventPublisher, log logger.Logger) *Service {
	s := &Service{
		repo:      repo,
		cache:     cache,
		parcels:   parcels,
		broadcast: broadcast,
		publisher: publisher,
		ingestMu:  newKeyedMutex(),
		cfg:       cfg,
		log:       log,
	}

	s.throttle = newThrottle(cfg.ThrottleInterval, s.flushPending)

	return s
}

// Run keeps the throttle table pruned until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.throttle.prune(10 * time.Minute)
		}
	}
}

// Ingest validates, persists and fans out one position report.
//
// The write is synchronous: a sample is broadcast only after the store has
// acknowledged it, otherwise subscribers could see a point the trail can
// never confirm. Reports above the throttle rate are coalesced keep-latest
// and flushed when the interval elapses.
func (s *Service) Ingest(ctx context.Context, agent *models.User, req IngestRequest) (*models.PositionSample, error) {
	const op = "tracking.Ingest"

	if err := validateReport(req); err != nil {
		return nil, err
	}

	parcel, err := s.parcels.Get(ctx, req.ParcelID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if agent == nil || agent.Role != types.RoleAgent || !parcel.IsAssignedTo(agent.ID) {
		return nil, types.ErrNotAssignedAgent
	}

	now := time.Now().UTC()
	sample := models.PositionSample{
		ID:         uuid.New(),
		ParcelID:   req.ParcelID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		SpeedKph:   req.SpeedKph,
		Heading:    req.Heading,
		RecordedAt: now,
		ReceivedAt: now,
		ReportedBy: agent.ID,
	}

	metrics.LocationSamplesIngested.WithLabelValues(serviceName, req.Transport).Inc()

	key := agent.ID.String() + "/" + req.ParcelID
	if !s.throttle.Admit(key, sample, req.OriginSession) {
		// Coalesced: the latest pending sample for this pair will be
		// persisted and broadcast when the interval elapses.
		metrics.LocationSamplesThrottled.WithLabelValues(serviceName).Inc()
		return &sample, nil
	}

	if err := s.persistAndBroadcast(ctx, sample, req.OriginSession); err != nil {
		return nil, err
	}
	return &sample, nil
}

// flushPending is the throttle's trailing-flush callback.
func (s *Service) flushPending(sample models.PositionSample, origin uuid.UUID) {
	ctx := wrap.WithParcelID(wrap.WithAction(context.Background(), "throttle_flush"), sample.ParcelID)

	if err := s.persistAndBroadcast(ctx, sample, origin); err != nil {
		// The reporting device keeps sending; the next admitted sample
		// supersedes this one.
		s.log.Warn(ctx, "failed to flush coalesced sample", "err", err.Error())
	}
}

// persistAndBroadcast is the single write path: store first, then fan out,
// then mirror onto the bus. Ingests for the same parcel are serialized so
// samples reach the store and the rooms in recordedAt order.
func (s *Service) persistAndBroadcast(ctx context.Context, sample models.PositionSample, origin uuid.UUID) error {
	unlock := s.ingestMu.Lock(sample.ParcelID)
	defer unlock()

	start := time.Now()

	if err := s.repo.Append(ctx, &sample); err != nil {
		s.log.Error(wrap.ErrorCtx(ctx, err), "failed to append position sample", err)
		return fmt.Errorf("%w: %s", types.ErrPersistence, err)
	}

	// Best-effort cache refresh; the store remains the source of truth.
	// A failed refresh leaves the previous point behind, so drop the entry
	// rather than let a stale point shadow the newer durable one.
	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, &sample); err != nil {
			s.log.Warn(ctx, "failed to update latest-point cache", "err", err.Error())
			if err := s.cache.DeleteLatest(ctx, sample.ParcelID); err != nil {
				s.log.Warn(ctx, "failed to invalidate latest-point cache", "err", err.Error())
			}
		}
	}

	s.broadcast.Broadcast(ctx, sample, origin)

	if s.publisher != nil {
		event := models.ParcelLocationEvent{
			ParcelID:   sample.ParcelID,
			AgentID:    sample.ReportedBy,
			Latitude:   sample.Latitude,
			Longitude:  sample.Longitude,
			SpeedKph:   sample.SpeedKph,
			Heading:    sample.Heading,
			RecordedAt: sample.RecordedAt,
		}
		if err := s.publisher.PublishParcelLocation(ctx, event); err != nil {
			s.log.Warn(ctx, "failed to publish location event", "err", err.Error())
		}
	}

	metrics.IngestDuration.WithLabelValues(serviceName).Observe(time.Since(start).Seconds())
	return nil
}

// AuthorizeView checks that the identity may observe a parcel's location:
// admins see any parcel, customers their own, agents the ones assigned to
// them.
func (s *Service) AuthorizeView(ctx context.Context, user *models.User, parcelID string) error {
	const op = "tracking.AuthorizeView"

	if user == nil || user.IsAnonymous() {
		return types.ErrAuthRequired
	}

	if user.Role == types.RoleAdmin {
		return nil
	}

	parcel, err := s.parcels.Get(ctx, parcelID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch user.Role {
	case types.RoleCustomer:
		if parcel.CustomerID == user.ID {
			return nil
		}
	case types.RoleAgent:
		if parcel.IsAssignedTo(user.ID) {
			return nil
		}
	}

	return types.ErrForbidden
}

// Trail returns the parcel's bounded recent history, oldest first.
func (s *Service) Trail(ctx context.Context, user *models.User, parcelID string, limit int) ([]models.PositionSample, error) {
	const op = "tracking.Trail"

	if err := s.AuthorizeView(ctx, user, parcelID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultTrailLimit
	}
	if limit > MaxTrailLimit {
		limit = MaxTrailLimit
	}

	points, err := s.repo.Recent(ctx, parcelID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return points, nil
}

// Current returns the parcel's latest known position, or nil when no sample
// was ever recorded. The cache is consulted first; the store backs it up.
func (s *Service) Current(ctx context.Context, user *models.User, parcelID string) (*models.PositionSample, error) {
	const op = "tracking.Current"

	if err := s.AuthorizeView(ctx, user, parcelID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		point, err := s.cache.GetLatest(ctx, parcelID)
		if err != nil {
			s.log.Warn(ctx, "latest-point cache read failed", "err", err.Error())
		} else if point != nil {
			return point, nil
		}
	}

	point, err := s.repo.Latest(ctx, parcelID)
	if err != nil {
		if errors.Is(err, types.ErrNoTrackingPoints) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil && point != nil {
		if err := s.cache.SetLatest(ctx, point); err != nil {
			s.log.Warn(ctx, "failed to backfill latest-point cache", "err", err.Error())
		}
	}
	return point, nil
}

// validateReport rejects out-of-range coordinates and readings before any
// external lookups happen.
func validateReport(req IngestRequest) error {
	if req.ParcelID == "" {
		return fmt.Errorf("%w: parcelId must be provided", types.ErrValidation)
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", types.ErrValidation)
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", types.ErrValidation)
	}
	if req.SpeedKph != nil && *req.SpeedKph < 0 {
		return fmt.Errorf("%w: speedKph must be non-negative", types.ErrValidation)
	}
	if req.Heading != nil && (*req.Heading < 0 || *req.Heading > 360) {
		return fmt.Errorf("%w: heading must be between 0 and 360", types.ErrValidation)
	}
	return nil
}
