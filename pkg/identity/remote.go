package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const userPath = "/auth/v1/user"

// RemoteVerifier asks the identity service who owns a token.
type RemoteVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRemoteVerifier(baseURL, apiKey string, client *http.Client) *RemoteVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type remoteUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt string         `json:"email_confirmed_at"`
	CreatedAt        string         `json:"created_at"`
	Role             string         `json:"role"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

// Verify makes one GET request. 401 and 403 answers map to ErrInvalidToken.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*User, error) {
	ctx, span := otel.Tracer("screenpilot/identity").Start(ctx, "identity.verify")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "transport")
		return nil, fmt.Errorf("identity: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("identity: unexpected status %d", resp.StatusCode)
	}

	var ru remoteUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ru); err != nil {
		return nil, fmt.Errorf("identity: decode user: %w", err)
	}
	if ru.ID == "" {
		return nil, ErrInvalidToken
	}

	u := &User{
		ID:            ru.ID,
		Email:         ru.Email,
		EmailVerified: ru.EmailConfirmedAt != "",
		Role:          ru.Role,
		Metadata:      ru.UserMetadata,
	}
	if b, ok := ru.UserMetadata["email_verified"].(bool); ok && b {
		u.EmailVerified = true
	}
	if t, err := time.Parse(time.RFC3339, ru.CreatedAt); err == nil {
		u.CreatedAt = t.UTC()
	}
	return u, nil
}
