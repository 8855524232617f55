package dto

import (
	"github.com/courierops/parcel-track-system/pkg/validator"
)

// AgentLocationReq is the REST fallback body for an agent position report.
// Field names follow the dashboard client, which sends camelCase.
type AgentLocationReq struct {
	ParcelID  string   `json:"parcelId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	SpeedKph  *float64 `json:"speedKph"`
	Heading   *float64 `json:"heading"`
}

func (r *AgentLocationReq) Validate(v *validator.Validator) {
	// ParcelID
	v.Check(r.ParcelID != "", "parcelId", "must be provided")

	// Coordinates
	if r.Latitude != nil && r.Longitude != nil {
		v.Check(*r.Latitude >= -90 && *r.Latitude <= 90, "latitude", "must be between -90 and 90")
		v.Check(*r.Longitude >= -180 && *r.Longitude <= 180, "longitude", "must be between -180 and 180")
	} else {
		v.Check(r.Latitude != nil, "latitude", "must be provided")
		v.Check(r.Longitude != nil, "longitude", "must be provided")
	}

	// Optional readings
	if r.SpeedKph != nil {
		v.Check(*r.SpeedKph >= 0, "speedKph", "must be non-negative")
	}
	if r.Heading != nil {
		v.Check(*r.Heading >= 0 && *r.Heading <= 360, "heading", "must be between 0 and 360")
	}
}
