package tracking

import (
	"context"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/pkg/uuid"
)

// Transports a sample can arrive through. Both funnel into the same Ingest
// so persistence and fan-out semantics never diverge.
const (
	TransportWebSocket = "websocket"
	TransportREST      = "rest"
)

// IngestRequest is one inbound position report, already parsed but not yet
// validated.
type IngestRequest struct {
	// OriginSession excludes the reporting socket from its own broadcast;
	// zero for REST-origin samples.
	OriginSession uuid.UUID
	Transport     string

	ParcelID  string
	Latitude  float64
	Longitude float64
	SpeedKph  *float64
	Heading   *float64
}

type (
	// LocationRepo is the durable append-only store of position samples.
	LocationRepo interface {
		Append(ctx context.Context, sample *models.PositionSample) error
		Recent(ctx context.Context, parcelID string, limit int) ([]models.PositionSample, error)
		Latest(ctx context.Context, parcelID string) (*models.PositionSample, error)
	}

	// LatestCache is a fast lookaside for the newest point per parcel.
	// A miss returns (nil, nil); failures must never break the read path.
	// When a refresh fails the entry is deleted instead, so a stale point
	// can never shadow a newer durable one on the cache-first read.
	LatestCache interface {
		SetLatest(ctx context.Context, sample *models.PositionSample) error
		GetLatest(ctx context.Context, parcelID string) (*models.PositionSample, error)
		DeleteLatest(ctx context.Context, parcelID string) error
	}

	// ParcelDirectory resolves the externally-owned parcel a sample refers to.
	ParcelDirectory interface {
		Get(ctx context.Context, parcelID string) (*models.Parcel, error)
	}

	// Broadcaster fans a persisted sample out to the parcel's live room.
	Broadcaster interface {
		Broadcast(ctx context.Context, sample models.PositionSample, exclude uuid.UUID) int
	}

	// EventPublisher mirrors broadcast samples onto the message bus for
	// out-of-process consumers. Optional: may be nil.
	EventPublisher interface {
		PublishParcelLocation(ctx context.Context, event models.ParcelLocationEvent) error
	}
)
