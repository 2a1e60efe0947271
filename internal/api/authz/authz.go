package authz

import (
	"context"
	"errors"

	"github.com/codr1/Padelicious/internal/models"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const RoleStaff = "staff"

type AuthUser struct {
	ID          int64
	Email       string
	IsStaff     bool
	SessionType string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// IsStaff reports whether the given AuthUser represents a staff user.
func IsStaff(user *AuthUser) bool {
	return user != nil && user.IsStaff
}

func SessionTypeFromContext(ctx context.Context) string {
	user := UserFromContext(ctx)
	if user == nil {
		return ""
	}
	return user.SessionType
}

// RequireUser returns the authenticated user or ErrUnauthenticated.
func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil || user.ID <= 0 {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireRole checks the caller holds role. Only "staff" is defined.
func RequireRole(ctx context.Context, role string) error {
	user, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	if role == RoleStaff && !user.IsStaff {
		return ErrForbidden
	}
	return nil
}

// ActorFromContext converts the authenticated user into the engines' actor.
func ActorFromContext(ctx context.Context) (models.Actor, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{UserID: user.ID, IsStaff: user.IsStaff}, nil
}
