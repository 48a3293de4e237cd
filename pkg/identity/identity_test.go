package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/screenpilot/pkg/identity"
)

const secret = "super-secret-jwt-key"

func sign(t *testing.T, c *identity.Claims) string {
	t.Helper()
	tok, err := identity.SignHS256(secret, c)
	require.NoError(t, err)
	return tok
}

func TestJWTVerifier_Valid(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tok := sign(t, &identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "https://id.example.com/auth/v1",
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:        "a@example.com",
		Role:         "authenticated",
		UserMetadata: map[string]any{"email_verified": true},
	})

	v := identity.NewJWTVerifier(secret, "https://id.example.com/auth/v1")
	u, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", u.ID)
	assert.Equal(t, "a@example.com", u.Email)
	assert.True(t, u.EmailVerified)
	assert.Equal(t, "authenticated", u.Role)
	assert.Equal(t, issued, u.CreatedAt)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v := identity.NewJWTVerifier(secret, "issuer-a")
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"expired", sign(t, &identity.Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u", Issuer: "issuer-a", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}})},
		{"wrong issuer", sign(t, &identity.Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u", Issuer: "issuer-b", ExpiresAt: future,
		}})},
		{"no subject", sign(t, &identity.Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "issuer-a", ExpiresAt: future,
		}})},
		{"wrong secret", func() string {
			tok, err := identity.SignHS256("other", &identity.Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject: "u", Issuer: "issuer-a", ExpiresAt: future,
			}})
			require.NoError(t, err)
			return tok
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, identity.ErrInvalidToken)
		})
	}
}

func TestJWTVerifier_NilFailsClosed(t *testing.T) {
	v := identity.NewJWTVerifier("", "")
	assert.Nil(t, v)
	_, err := v.Verify(context.Background(), "x")
	assert.Error(t, err)
}

func TestRemoteVerifier(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		switch gotAuth {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"u-1","email":"b@example.com","email_confirmed_at":"2024-01-02T03:04:05Z","created_at":"2024-01-01T00:00:00Z","role":"authenticated"}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	v := identity.NewRemoteVerifier(srv.URL+"/", "anon-key", nil)

	u, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "Bearer good", gotAuth)
	assert.Equal(t, "anon-key", gotKey)
	assert.Equal(t, "u-1", u.ID)
	assert.True(t, u.EmailVerified)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), u.CreatedAt)

	_, err = v.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	_, err = v.Verify(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, identity.ErrInvalidToken)
}
