package models

import (
	"github.com/courierops/parcel-track-system/pkg/uuid"
)

// Parcel is the read-only projection of the externally-owned shipment entity.
// The tracking core only needs enough of it to authorize joins and ingests.
type Parcel struct {
	ID              string
	TrackingNumber  string
	CustomerID      uuid.UUID
	AssignedAgentID *uuid.UUID
	Status          string
}

// IsAssignedTo reports whether the given agent currently carries the parcel.
func (p *Parcel) IsAssignedTo(agentID uuid.UUID) bool {
	return p.AssignedAgentID != nil && *p.AssignedAgentID == agentID
}
