package predict

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mindburn-Labs/screenpilot/pkg/actions"
	"github.com/Mindburn-Labs/screenpilot/pkg/llm"
	"github.com/Mindburn-Labs/screenpilot/pkg/observability"
	"github.com/Mindburn-Labs/screenpilot/pkg/prompt"
)

// ErrNoClient is returned when a Service has no model client.
var ErrNoClient = errors.New("predict: no model client configured")

// Result is the outcome of one prediction. Action is nil when the reply could
// not be structured; Prediction always holds the model's text.
type Result struct {
	Raw        json.RawMessage  `json:"raw"`
	Prediction string           `json:"prediction"`
	Action     *actions.Command `json:"action"`
	Hints      []Hint           `json:"hints,omitempty"`
	Source     Source           `json:"source"`
}

// Service runs the prompt, model and parse stages for one request.
type Service struct {
	builder *prompt.Builder
	client  llm.Client
	parser  *Parser
	obs     *observability.Provider
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithParser replaces the default reply parser.
func WithParser(p *Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithObservability records spans and metrics through p.
func WithObservability(p *observability.Provider) Option {
	return func(s *Service) { s.obs = p }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service that sends prompts to client.
func NewService(client llm.Client, opts ...Option) *Service {
	s := &Service{
		builder: prompt.NewBuilder(),
		client:  client,
		parser:  NewParser(),
		obs:     observability.Nop(),
		logger:  slog.Default().With("component", "predict"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Predict validates req, asks the model once and parses its reply.
// Validation failures return a *prompt.ValidationError before any model call;
// model failures return the client's *llm.Error. Parse failures are not
// errors.
func (s *Service) Predict(ctx context.Context, req prompt.Request) (res *Result, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	chat, err := s.builder.Build(req)
	if err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, ErrNoClient
	}

	ctx, done := s.obs.TrackOperation(ctx, "predict")
	defer func() { done(err) }()

	completion, err := s.client.Complete(ctx, chat)
	if err != nil {
		return nil, err
	}

	parseCtx, parseDone := s.obs.TrackOperation(ctx, "parse")
	pred := s.parser.Parse(completion.Text)
	trace.SpanFromContext(parseCtx).SetAttributes(attribute.String("source", string(pred.Source)))
	parseDone(nil)

	s.logger.DebugContext(ctx, "prediction parsed",
		"source", pred.Source, "hints", len(pred.Hints), "note", pred.Note)

	return &Result{
		Raw:        completion.Raw,
		Prediction: completion.Text,
		Action:     pred.Action,
		Hints:      pred.Hints,
		Source:     pred.Source,
	}, nil
}
