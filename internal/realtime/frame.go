package realtime

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/models"
)

// Frame kinds exchanged over the socket. Unknown inbound kinds are ignored
// so older servers and newer clients can coexist.
const (
	FrameAuth                = "auth"
	FrameJoin                = "join"
	FrameAgentLocationUpdate = "agent_location_update"
	FrameParcelLocation      = "parcel_location"
	FrameAck                 = "ack"
	FrameError               = "error"
)

var ErrEmptyFrame = errors.New("empty frame")

// Frame is the single inbound message schema. JSON is canonical; the loose
// comma-separated key=value form some devices emit is accepted at this
// boundary only and never leaks past the gateway.
type Frame struct {
	Type     string `json:"type"`
	Token    string `json:"token,omitempty"`
	ParcelID string `json:"parcelId,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	SpeedKph  *float64 `json:"speedKph,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
}

// ParseFrame decodes an inbound frame, trying JSON first and falling back to
// the loose key=value form.
func ParseFrame(raw []byte) (*Frame, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, ErrEmptyFrame
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var f Frame
		if err := json.Unmarshal([]byte(trimmed), &f); err != nil {
			return nil, err
		}
		if f.Type == "" {
			return nil, errors.New("frame missing type")
		}
		return &f, nil
	}

	return parseLooseFrame(trimmed)
}

// parseLooseFrame handles "type=join, parcelId=abc" style payloads.
func parseLooseFrame(trimmed string) (*Frame, error) {
	f := &Frame{}
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		if key == "" || value == "" {
			continue
		}

		switch key {
		case "type":
			f.Type = value
		case "token":
			f.Token = value
		case "parcelId":
			f.ParcelID = value
		case "latitude":
			f.Latitude = parseLooseNumber(value)
		case "longitude":
			f.Longitude = parseLooseNumber(value)
		case "speedKph":
			f.SpeedKph = parseLooseNumber(value)
		case "heading":
			f.Heading = parseLooseNumber(value)
		}
	}

	if f.Type == "" {
		return nil, errors.New("frame missing type")
	}
	return f, nil
}

func parseLooseNumber(value string) *float64 {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &n
}

// ParcelLocationFrame is the live position push sent to room subscribers.
type ParcelLocationFrame struct {
	Type      string   `json:"type"`
	ParcelID  string   `json:"parcelId"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	SpeedKph  *float64 `json:"speedKph,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`

	RecordedAt time.Time `json:"recordedAt"`
}

// NewParcelLocationFrame builds the outbound push for a persisted sample.
func NewParcelLocationFrame(sample models.PositionSample) ParcelLocationFrame {
	return ParcelLocationFrame{
		Type:       FrameParcelLocation,
		ParcelID:   sample.ParcelID,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		SpeedKph:   sample.SpeedKph,
		Heading:    sample.Heading,
		RecordedAt: sample.RecordedAt,
	}
}

// AckFrame confirms an accepted inbound frame back to its sender.
type AckFrame struct {
	Type     string `json:"type"`
	Of       string `json:"of"`
	ParcelID string `json:"parcelId,omitempty"`
}

// ErrorFrame reports a per-frame failure without dropping the connection.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error frame codes, mirroring the service error taxonomy.
const (
	CodeAuthRequired   = "auth_required"
	CodeAuthFailed     = "auth_failed"
	CodeForbidden      = "forbidden"
	CodeValidation     = "validation_error"
	CodePersistence    = "persistence_failure"
	CodeParcelNotFound = "parcel_not_found"
	CodeInternal       = "internal_error"
)
