package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
)

const (
	DefaultEndpoint = "https://api.siliconflow.cn/v1/chat/completions"
	DefaultModel    = "Qwen/Qwen2.5-VL-32B-Instruct"

	maxResponseBytes = 8 << 20
	maxErrorBody     = 4 << 10
)

// Config configures an OpenAIClient.
type Config struct {
	Endpoint         string
	Model            string
	APIKey           string
	Timeout          time.Duration
	MaxTokens        int
	Temperature      float64
	FrequencyPenalty float64

	// HTTPClient is the base client; the API key is layered on top of its
	// transport. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

// DefaultConfig returns the sampling parameters the prompt is tuned for.
func DefaultConfig() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		Model:            DefaultModel,
		Timeout:          60 * time.Second,
		MaxTokens:        1000,
		Temperature:      0.2,
		FrequencyPenalty: 0.1,
	}
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewOpenAIClient returns a client for cfg. Unset endpoint, model and
// token limit fall back to DefaultConfig.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}

	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	hc := base
	if cfg.APIKey != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey}))
	}
	if cfg.Timeout > 0 {
		c := *hc
		c.Timeout = cfg.Timeout
		hc = &c
	}

	return &OpenAIClient{
		cfg:    cfg,
		http:   hc,
		logger: slog.Default().With("component", "llm"),
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends req and returns the first choice. It makes exactly one
// request and never retries.
func (c *OpenAIClient) Complete(ctx context.Context, req *ChatRequest) (*Completion, error) {
	ctx, span := otel.Tracer("screenpilot/llm").Start(ctx, "llm.complete")
	defer span.End()

	body := *req
	if body.Model == "" {
		body.Model = c.cfg.Model
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.cfg.MaxTokens
	}
	if body.Temperature == nil {
		t := c.cfg.Temperature
		body.Temperature = &t
	}
	if body.FrequencyPenalty == nil {
		f := c.cfg.FrequencyPenalty
		body.FrequencyPenalty = &f
	}
	body.Stream = false
	span.SetAttributes(attribute.String("llm.model", body.Model))

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, &Error{Kind: KindTransport, Message: redact(err.Error(), c.cfg.APIKey), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e := &Error{
			Kind:       KindHTTP,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       redact(string(snippet), c.cfg.APIKey),
		}
		span.SetStatus(codes.Error, e.Error())
		c.logger.WarnContext(ctx, "model service rejected request",
			"status", resp.StatusCode, "body", e.Body, "duration", time.Since(start))
		return nil, e
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		return nil, &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		span.SetStatus(codes.Error, "decode")
		return nil, &Error{Kind: KindService, StatusCode: resp.StatusCode, Message: "undecodable response", Body: truncate(string(raw)), Err: err}
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		span.SetStatus(codes.Error, "service")
		return nil, &Error{Kind: KindService, StatusCode: resp.StatusCode, Message: parsed.Error.Message, Body: truncate(string(raw))}
	}
	if len(parsed.Choices) == 0 {
		span.SetStatus(codes.Error, "empty choices")
		return nil, &Error{Kind: KindService, StatusCode: resp.StatusCode, Message: "empty choices in response", Body: truncate(string(raw))}
	}

	c.logger.DebugContext(ctx, "model reply received",
		"model", body.Model, "duration", time.Since(start), "chars", len(parsed.Choices[0].Message.Content))

	return &Completion{
		Raw:  json.RawMessage(raw),
		Text: parsed.Choices[0].Message.Content,
	}, nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "[REDACTED]")
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
