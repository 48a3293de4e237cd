package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Mindburn-Labs/screenpilot/pkg/api"
	"github.com/Mindburn-Labs/screenpilot/pkg/auth"
	"github.com/Mindburn-Labs/screenpilot/pkg/authz"
	"github.com/Mindburn-Labs/screenpilot/pkg/config"
	"github.com/Mindburn-Labs/screenpilot/pkg/identity"
	"github.com/Mindburn-Labs/screenpilot/pkg/llm"
	"github.com/Mindburn-Labs/screenpilot/pkg/observability"
	"github.com/Mindburn-Labs/screenpilot/pkg/predict"
)

// app is the wired server and the resources it owns.
type app struct {
	handler http.Handler
	obs     *observability.Provider
	closers []func() error
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	errs = append(errs, a.obs.Shutdown(ctx))
	return errors.Join(errs...)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version
	obsCfg.Enabled = cfg.Telemetry.Enabled
	obsCfg.OTLPEndpoint = cfg.Telemetry.Endpoint
	obsCfg.Insecure = cfg.Telemetry.Insecure
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init observability: %w", err)
	}
	a := &app{obs: obs}

	checker, closer, err := buildChecker(ctx, cfg)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	verifier := buildVerifier(cfg)
	if verifier == nil {
		logger.WarnContext(ctx, "no identity backend configured; authenticated endpoints will answer 401")
	}

	svc := predict.NewService(
		llm.NewOpenAIClient(cfg.LLM()),
		predict.WithObservability(obs),
		predict.WithLogger(logger.With("component", "predict")),
	)

	a.handler = api.NewRouter(api.Options{
		Predictor:          svc,
		Gate:               auth.NewGate(verifier, checker, obs),
		Logger:             logger.With("component", "api"),
		Version:            version,
		CORSOrigins:        cfg.CORSOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		PredictRequireAuth: cfg.Predict.RequireAuth,
		PredictResource:    cfg.Predict.Resource,
	})
	return a, nil
}

// buildVerifier prefers the remote identity service over local JWT checks.
func buildVerifier(cfg *config.Config) identity.Verifier {
	switch {
	case cfg.Auth.IdentityURL != "":
		return identity.NewRemoteVerifier(cfg.Auth.IdentityURL, cfg.Auth.IdentityAPIKey, nil)
	case cfg.Auth.JWTSecret != "":
		return identity.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	default:
		return nil
	}
}

func buildChecker(ctx context.Context, cfg *config.Config) (authz.Checker, func() error, error) {
	p := cfg.Permissions
	switch p.Backend {
	case config.BackendPostgres:
		s, err := authz.OpenPostgres(p.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("postgres ping failed: %w", err)
		}
		return s, s.Close, nil
	case config.BackendSQLite:
		s, err := authz.OpenSQLite(ctx, p.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to setup sqlite permissions: %w", err)
		}
		return s, s.Close, nil
	case config.BackendRedis:
		s := authz.NewRedisStore(p.RedisAddr, "", 0)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return s, s.Close, nil
	case config.BackendCEL:
		c, err := authz.NewPolicyChecker(p.Policy)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	default:
		return nil, nil, nil
	}
}
