package models

import (
	"time"

	"github.com/courierops/parcel-track-system/pkg/uuid"
)

// PositionSample is one GPS report produced by the agent assigned to a parcel.
// Samples are append-only: once recorded they are never mutated or deleted.
//
// The wire shape (camelCase keys) is fixed by the dashboard clients, so the
// model keeps those tags instead of the snake_case used for internal events.
type PositionSample struct {
	ID        uuid.UUID `json:"id"`
	ParcelID  string    `json:"parcelId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`

	// Optional device readings; nil when the device did not report them
	SpeedKph *float64 `json:"speedKph,omitempty"`
	Heading  *float64 `json:"heading,omitempty"`

	// RecordedAt is server-assigned at ingest time and is the ordering key
	// for a parcel's trail. ReceivedAt stamps transport arrival separately.
	RecordedAt time.Time `json:"recordedAt"`
	ReceivedAt time.Time `json:"-"`

	ReportedBy uuid.UUID `json:"-"`
}

// Trail is the bounded, recordedAt-ordered history of a parcel's samples.
type Trail struct {
	ParcelID string           `json:"parcelId"`
	Points   []PositionSample `json:"points"`
}
