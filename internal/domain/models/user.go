package models

import (
	"context"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/types"
	"github.com/courierops/parcel-track-system/pkg/uuid"
)

type User struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      types.UserRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

var anonymous = &User{}

// AnonymousUser represents an unauthenticated request.
func AnonymousUser() *User {
	return anonymous
}

func (u *User) IsAnonymous() bool {
	return u == anonymous
}

// userCtxKeyStruct is an unexported type for the user context key.
type userCtxKeyStruct struct{}

var userCtxKey = &userCtxKeyStruct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext returns the user stored in the context, or nil.
func UserFromContext(ctx context.Context) *User {
	user, ok := ctx.Value(userCtxKey).(*User)
	if !ok {
		return nil
	}
	return user
}
