// Package authz answers coarse permission questions: may this user use this
// resource. Grants live in an external store; nothing is cached locally.
package authz

import (
	"context"
	"errors"

	"github.com/Mindburn-Labs/screenpilot/pkg/identity"
)

// ErrNoBackend is returned when no permission backend is configured.
var ErrNoBackend = errors.New("authz: no permission backend configured")

// Checker reports whether user holds a grant for resource. An error means the
// backend could not answer, not that access is denied.
type Checker interface {
	HasPermission(ctx context.Context, user identity.User, resource string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, user identity.User, resource string) (bool, error)

func (f CheckerFunc) HasPermission(ctx context.Context, user identity.User, resource string) (bool, error) {
	return f(ctx, user, resource)
}
