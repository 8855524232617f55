package models

import (
	"time"

	"github.com/courierops/parcel-track-system/pkg/uuid"
)

// ParcelLocationEvent is published to the <location_fanout> exchange for every
// broadcast sample, so out-of-process consumers (notifications, reporting)
// see the same stream the live subscribers do.
type ParcelLocationEvent struct {
	ParcelID   string    `json:"parcel_id"`
	AgentID    uuid.UUID `json:"agent_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	SpeedKph   *float64  `json:"speed_kph,omitempty"`
	Heading    *float64  `json:"heading_degrees,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
