package auth

import "errors"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrUnknownUser   = errors.New("token subject is not a known user")
	ErrUnknownRole   = errors.New("token carries an unknown role")
	ErrMissingSecret = errors.New("jwt secret is not configured")
)
