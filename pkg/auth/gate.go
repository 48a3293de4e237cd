// Package auth is the identity gate: bearer parsing, credential
// verification, coarse permission checks and the request-scoped helpers
// (user in context, request ids, CORS) around them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Mindburn-Labs/screenpilot/pkg/authz"
	"github.com/Mindburn-Labs/screenpilot/pkg/identity"
	"github.com/Mindburn-Labs/screenpilot/pkg/observability"
)

var (
	// ErrUnauthenticated covers a missing, malformed or rejected credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means a valid user without the required grant.
	ErrForbidden = errors.New("forbidden")
	// ErrBackend wraps identity or permission backend failures.
	ErrBackend = errors.New("identity backend failure")
)

// Decision is the outcome of Authorize.
type Decision struct {
	Granted bool `json:"granted"`
}

// Gate verifies bearer credentials and checks grants. Each call makes at most
// one backend request; nothing is cached or retried.
type Gate struct {
	verifier identity.Verifier
	checker  authz.Checker
	obs      *observability.Provider
	logger   *slog.Logger
}

// NewGate builds a gate. A nil verifier rejects every credential and a nil
// checker fails every authorization with ErrBackend.
func NewGate(v identity.Verifier, c authz.Checker, obs *observability.Provider) *Gate {
	return &Gate{
		verifier: v,
		checker:  c,
		obs:      obs,
		logger:   slog.Default().With("component", "auth"),
	}
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: missing Authorization header", ErrUnauthenticated)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: invalid Authorization header format (expected 'Bearer <token>')", ErrUnauthenticated)
	}
	return strings.TrimSpace(parts[1]), nil
}

// Authenticate verifies the Authorization header value. Header problems are
// reported before the verifier is consulted.
func (g *Gate) Authenticate(ctx context.Context, header string) (user *identity.User, err error) {
	token, err := ParseBearer(header)
	if err != nil {
		return nil, err
	}
	if g == nil || g.verifier == nil {
		return nil, fmt.Errorf("%w: authentication not configured", ErrUnauthenticated)
	}

	ctx, done := g.obs.TrackOperation(ctx, "authenticate")
	defer func() { done(err) }()

	u, err := g.verifier.Verify(ctx, token)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, identity.ErrInvalidToken):
		return nil, fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	default:
		g.logger.WarnContext(ctx, "identity backend failed", "error", err, "request_id", GetRequestID(ctx))
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
}

// Authorize asks the permission backend whether user may use resource.
func (g *Gate) Authorize(ctx context.Context, user identity.User, resource string) (d Decision, err error) {
	if g == nil || g.checker == nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrBackend, authz.ErrNoBackend)
	}
	if user.ID == "" {
		return Decision{}, nil
	}

	ctx, done := g.obs.TrackOperation(ctx, "authorize")
	defer func() { done(err) }()

	ok, err := g.checker.HasPermission(ctx, user, resource)
	if err != nil {
		g.logger.WarnContext(ctx, "permission backend failed", "error", err, "resource", resource)
		return Decision{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return Decision{Granted: ok}, nil
}

// Require folds Authorize into an error: ErrForbidden when the grant is
// missing, ErrBackend when the backend failed.
func (g *Gate) Require(ctx context.Context, user identity.User, resource string) error {
	d, err := g.Authorize(ctx, user, resource)
	if err != nil {
		return err
	}
	if !d.Granted {
		return fmt.Errorf("%w: no permission for %s", ErrForbidden, resource)
	}
	return nil
}
