package middleware

import (
	"context"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/pkg/logger"
)

type (
	TokenVerifier interface {
		VerifyToken(ctx context.Context, token string) (*models.User, error)
	}

	Middleware struct {
		verifier TokenVerifier
		log      logger.Logger
	}
)

func NewMiddleware(verifier TokenVerifier, log logger.Logger) *Middleware {
	return &Middleware{
		verifier: verifier,
		log:      log,
	}
}
