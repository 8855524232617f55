package auth

import (
	"github.com/courierops/parcel-track-system/pkg/uuid"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the JWT payload minted by the external auth service. The
// tracking core only verifies it, never issues it.
type AccessClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	Email  string    `json:"email,omitempty"`

	jwt.RegisteredClaims
}
