package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims issued by the identity backend.
type Claims struct {
	jwt.RegisteredClaims
	Email         string         `json:"email,omitempty"`
	EmailVerified *bool          `json:"email_verified,omitempty"`
	Role          string         `json:"role,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UserMetadata  map[string]any `json:"user_metadata,omitempty"`
}

// JWTVerifier validates HMAC-signed access tokens locally with the backend's
// shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier returns nil when secret is empty so callers fail closed.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	if secret == "" {
		return nil
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*User, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, errors.New("jwt verifier uninitialized")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token subject is required", ErrInvalidToken)
	}
	return claims.User(), nil
}

// User projects the claims.
func (c *Claims) User() *User {
	u := &User{
		ID:       c.Subject,
		Email:    c.Email,
		Role:     c.Role,
		Metadata: c.UserMetadata,
	}
	switch {
	case c.EmailVerified != nil:
		u.EmailVerified = *c.EmailVerified
	case c.UserMetadata != nil:
		if b, ok := c.UserMetadata["email_verified"].(bool); ok {
			u.EmailVerified = b
		}
	}
	if t, err := time.Parse(time.RFC3339, c.CreatedAt); err == nil {
		u.CreatedAt = t.UTC()
	} else if c.IssuedAt != nil {
		u.CreatedAt = c.IssuedAt.UTC()
	}
	return u
}

// SignHS256 issues a token for claims. Used by tooling and tests.
func SignHS256(secret string, claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
