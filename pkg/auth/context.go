package auth

import (
	"context"
	"errors"

	"github.com/Mindburn-Labs/screenpilot/pkg/identity"
)

type contextKey string

const userKey contextKey = "user"

// WithUser attaches a verified user to the context.
func WithUser(ctx context.Context, u *identity.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the verified user.
func UserFromContext(ctx context.Context) (*identity.User, error) {
	u, ok := ctx.Value(userKey).(*identity.User)
	if !ok || u == nil {
		return nil, errors.New("no user in context")
	}
	return u, nil
}
