package realtime

import (
	"context"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/domain/types"
	"github.com/courierops/parcel-track-system/pkg/logger"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/courierops/parcel-track-system/pkg/metrics"
	"github.com/courierops/parcel-track-system/pkg/uuid"
)

// Fanout delivers a persisted sample to every subscriber of its parcel's
// room. It satisfies the engine's Broadcaster contract.
type Fanout struct {
	registry *Registry
	log      logger.Logger
}

func NewFanout(registry *Registry, log logger.Logger) *Fanout {
	return &Fanout{
		registry: registry,
		log:      log,
	}
}

// Broadcast enqueues a parcel_location frame to each subscriber except the
// originator. A subscriber whose queue is full is disconnected on the spot:
// one slow consumer must not delay the rest of the room, let alone other
// parcels. Returns the number of sessions the frame was delivered to.
func (f *Fanout) Broadcast(ctx context.Context, sample models.PositionSample, exclude uuid.UUID) int {
	ctx = wrap.WithAction(wrap.WithParcelID(ctx, sample.ParcelID), types.ActionWSBroadcast)

	frame := NewParcelLocationFrame(sample)
	delivered := 0

	for _, sub := range f.registry.Subscribers(sample.ParcelID) {
		if sub.ID() == exclude {
			continue
		}

		if err := sub.Enqueue(frame); err != nil {
			f.log.Warn(wrap.WithSessionID(ctx, sub.ID().String()),
				"dropping subscriber with stalled send queue",
				"err", err.Error(),
			)
			f.registry.LeaveAll(sub)
			sub.Close()
			continue
		}
		delivered++
	}

	if delivered > 0 {
		metrics.LocationBroadcastsTotal.WithLabelValues(serviceName).Add(float64(delivered))
	}
	return delivered
}
