package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/screenpilot/pkg/auth"
	"github.com/Mindburn-Labs/screenpilot/pkg/authz"
	"github.com/Mindburn-Labs/screenpilot/pkg/identity"
)

type countingVerifier struct {
	calls int
	user  *identity.User
	err   error
}

func (v *countingVerifier) Verify(ctx context.Context, token string) (*identity.User, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return v.user, nil
}

func TestParseBearer(t *testing.T) {
	tok, err := auth.ParseBearer("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = auth.ParseBearer("bearer  xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic dXNlcjpwYXNz", "abc"} {
		_, err := auth.ParseBearer(h)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated, h)
	}
}

func TestGate_MalformedHeaderSkipsBackend(t *testing.T) {
	v := &countingVerifier{user: &identity.User{ID: "u"}}
	g := auth.NewGate(v, nil, nil)

	for _, h := range []string{"", "Token abc", "Bearer"} {
		_, err := g.Authenticate(context.Background(), h)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	}
	assert.Equal(t, 0, v.calls)
}

func TestGate_Authenticate(t *testing.T) {
	v := &countingVerifier{user: &identity.User{ID: "u-1", Email: "a@b.c"}}
	u, err := auth.NewGate(v, nil, nil).Authenticate(context.Background(), "Bearer good")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, 1, v.calls)
}

func TestGate_AuthenticateErrors(t *testing.T) {
	_, err := auth.NewGate(&countingVerifier{err: identity.ErrInvalidToken}, nil, nil).
		Authenticate(context.Background(), "Bearer bad")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = auth.NewGate(&countingVerifier{err: errors.New("dial tcp: refused")}, nil, nil).
		Authenticate(context.Background(), "Bearer x")
	assert.ErrorIs(t, err, auth.ErrBackend)
	assert.NotErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = auth.NewGate(nil, nil, nil).Authenticate(context.Background(), "Bearer x")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated, "fail closed without verifier")
}

func TestGate_Authorize(t *testing.T) {
	checker := authz.CheckerFunc(func(ctx context.Context, u identity.User, r string) (bool, error) {
		switch r {
		case "broken":
			return false, errors.New("db down")
		default:
			return u.ID == "u-1" && r == "predict", nil
		}
	})
	g := auth.NewGate(nil, checker, nil)
	ctx := context.Background()

	d, err := g.Authorize(ctx, identity.User{ID: "u-1"}, "predict")
	require.NoError(t, err)
	assert.True(t, d.Granted)

	d, err = g.Authorize(ctx, identity.User{ID: "u-2"}, "predict")
	require.NoError(t, err)
	assert.False(t, d.Granted)

	d, err = g.Authorize(ctx, identity.User{}, "predict")
	require.NoError(t, err)
	assert.False(t, d.Granted)

	_, err = g.Authorize(ctx, identity.User{ID: "u-1"}, "broken")
	assert.ErrorIs(t, err, auth.ErrBackend)

	_, err = auth.NewGate(nil, nil, nil).Authorize(ctx, identity.User{ID: "u-1"}, "predict")
	assert.ErrorIs(t, err, auth.ErrBackend)

	assert.NoError(t, g.Require(ctx, identity.User{ID: "u-1"}, "predict"))
	assert.ErrorIs(t, g.Require(ctx, identity.User{ID: "u-2"}, "predict"), auth.ErrForbidden)
	assert.ErrorIs(t, g.Require(ctx, identity.User{ID: "u-1"}, "broken"), auth.ErrBackend)
}

func TestUserContext(t *testing.T) {
	_, err := auth.UserFromContext(context.Background())
	assert.Error(t, err)

	ctx := auth.WithUser(context.Background(), &identity.User{ID: "x"})
	u, err := auth.UserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", u.ID)
}

func TestCORSMiddleware(t *testing.T) {
	reached := false
	h := auth.CORSMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.False(t, reached)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, reached)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_AllowList(t *testing.T) {
	h := auth.CORSMiddleware([]string{"https://a.example.com", " "})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://a.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://a.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := auth.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "client-id", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(auth.HeaderRequestID, "bad id\twith controls")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 36)

	assert.Empty(t, auth.GetRequestID(context.Background()))
}
