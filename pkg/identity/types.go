// Package identity verifies bearer credentials against an identity backend and
// projects the verified subject into a User.
package identity

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidToken means the backend rejected the credential. Any other error
// from a Verifier is a backend failure.
var ErrInvalidToken = errors.New("invalid or expired token")

// User is the read-only projection of a verified subject.
type User struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"emailVerified"`
	CreatedAt     time.Time      `json:"createdAt"`
	Role          string         `json:"role,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Verifier checks a raw bearer token. Implementations make at most one
// backend call and keep no cache.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}
