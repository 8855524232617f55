package auth

import (
	"context"
	"errors"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/domain/types"
	"github.com/courierops/parcel-track-system/pkg/logger"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/courierops/parcel-track-system/pkg/uuid"
	"github.com/golang-jwt/jwt/v5"
)

// UserRepo resolves token subjects against the externally-owned users table.
type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenService verifies access tokens issued by the external auth
// collaborator. Verification is the only auth concern owned here: login,
// refresh and user management live elsewhere.
type TokenService struct {
	userRepo UserRepo
	secret   string
	log      logger.Logger
}

func NewTokenService(secret string, userRepo UserRepo, log logger.Logger) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	return &TokenService{
		userRepo: userRepo,
		secret:   secret,
		log:      log,
	}, nil
}

// VerifyToken parses and validates an access token and resolves the user
// behind it. The users table is consulted so revoked or deleted accounts
// cannot keep a live socket.
func (s *TokenService) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "verify_token")

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	role := types.UserRole(claims.Role)
	if !role.Valid() {
		return nil, ErrUnknownRole
	}

	if s.userRepo == nil {
		// No directory wired, trust the verified claims.
		return &models.User{ID: claims.UserID, Email: claims.Email, Role: role}, nil
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, wrap.Error(ctx, err)
	}

	// The directory's role wins over a stale token claim.
	return user, nil
}
