package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Mindburn-Labs/screenpilot/pkg/llm"
)

// Permission backends.
const (
	BackendNone     = "none"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendCEL      = "cel"
)

// Config holds server configuration.
type Config struct {
	Port         string   `yaml:"port"`
	LogLevel     string   `yaml:"log_level"`
	LogFormat    string   `yaml:"log_format"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	CORSOrigins  []string `yaml:"cors_origins"`

	Model       ModelConfig      `yaml:"model"`
	Auth        AuthConfig       `yaml:"auth"`
	Permissions PermissionConfig `yaml:"permissions"`
	Predict     PredictConfig    `yaml:"predict"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`

	problems []string
}

type ModelConfig struct {
	Endpoint         string        `yaml:"endpoint"`
	Name             string        `yaml:"name"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxTokens        int           `yaml:"max_tokens"`
	Temperature      float64       `yaml:"temperature"`
	FrequencyPenalty float64       `yaml:"frequency_penalty"`
}

type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	JWTIssuer      string `yaml:"jwt_issuer"`
	IdentityURL    string `yaml:"identity_url"`
	IdentityAPIKey string `yaml:"identity_api_key"`
}

type PermissionConfig struct {
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr"`
	Policy      string `yaml:"policy"`
}

type PredictConfig struct {
	RequireAuth bool   `yaml:"require_auth"`
	Resource    string `yaml:"resource"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Load loads configuration from environment variables. Malformed values keep
// their defaults and are reported by Validate.
func Load() *Config {
	def := llm.DefaultConfig()
	c := &Config{}

	c.Port = str("PORT", "8080")
	c.LogLevel = strings.ToUpper(str("LOG_LEVEL", "INFO"))
	c.LogFormat = strings.ToLower(str("LOG_FORMAT", "text"))
	c.MaxBodyBytes = c.envInt("MAX_BODY_BYTES", 20<<20)
	c.CORSOrigins = list("CORS_ORIGINS")

	c.Model = ModelConfig{
		Endpoint:         str("MODEL_ENDPOINT", def.Endpoint),
		Name:             str("MODEL_NAME", def.Model),
		APIKey:           os.Getenv("MODEL_API_KEY"),
		Timeout:          c.envDuration("MODEL_TIMEOUT", def.Timeout),
		MaxTokens:        int(c.envInt("MODEL_MAX_TOKENS", int64(def.MaxTokens))),
		Temperature:      c.envFloat("MODEL_TEMPERATURE", def.Temperature),
		FrequencyPenalty: c.envFloat("MODEL_FREQUENCY_PENALTY", def.FrequencyPenalty),
	}

	c.Auth = AuthConfig{
		JWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer:      os.Getenv("AUTH_JWT_ISSUER"),
		IdentityURL:    os.Getenv("IDENTITY_URL"),
		IdentityAPIKey: os.Getenv("IDENTITY_API_KEY"),
	}

	c.Permissions = PermissionConfig{
		Backend:     strings.ToLower(str("PERMISSION_BACKEND", BackendNone)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  str("SQLITE_PATH", "screenpilot.db"),
		RedisAddr:   str("REDIS_ADDR", "localhost:6379"),
		Policy:      os.Getenv("PERMISSION_POLICY"),
	}

	c.Predict = PredictConfig{
		RequireAuth: c.envBool("PREDICT_REQUIRE_AUTH", false),
		Resource:    os.Getenv("PREDICT_RESOURCE"),
	}

	c.Telemetry = TelemetryConfig{
		Enabled:  c.envBool("OTEL_ENABLED", false),
		Endpoint: str("OTEL_ENDPOINT", "localhost:4317"),
		Insecure: c.envBool("OTEL_INSECURE", false),
	}
	return c
}

// Validate rejects impossible combinations.
func (c *Config) Validate() error {
	errs := make([]error, 0, len(c.problems))
	for _, p := range c.problems {
		errs = append(errs, errors.New(p))
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("port %q is not a number", c.Port))
	}
	switch c.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("log level %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format %q is not text or json", c.LogFormat))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max body bytes must be positive"))
	}

	if c.Model.Endpoint == "" {
		errs = append(errs, errors.New("model endpoint is required"))
	}
	if c.Model.MaxTokens <= 0 {
		errs = append(errs, errors.New("model max tokens must be positive"))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model temperature %v outside [0, 2]", c.Model.Temperature))
	}
	if c.Model.FrequencyPenalty < -2 || c.Model.FrequencyPenalty > 2 {
		errs = append(errs, fmt.Errorf("model frequency penalty %v outside [-2, 2]", c.Model.FrequencyPenalty))
	}
	if c.Model.Timeout <= 0 {
		errs = append(errs, errors.New("model timeout must be positive"))
	}

	switch c.Permissions.Backend {
	case BackendNone:
		if c.Predict.Resource != "" {
			errs = append(errs, errors.New("predict resource set but permission backend is none"))
		}
	case BackendPostgres:
		if c.Permissions.DatabaseURL == "" {
			errs = append(errs, errors.New("permission backend postgres requires DATABASE_URL"))
		}
	case BackendSQLite:
		if c.Permissions.SQLitePath == "" {
			errs = append(errs, errors.New("permission backend sqlite requires SQLITE_PATH"))
		}
	case BackendRedis:
		if c.Permissions.RedisAddr == "" {
			errs = append(errs, errors.New("permission backend redis requires REDIS_ADDR"))
		}
	case BackendCEL:
		if c.Permissions.Policy == "" {
			errs = append(errs, errors.New("permission backend cel requires PERMISSION_POLICY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown permission backend %q", c.Permissions.Backend))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// LLM returns the model client configuration.
func (c *Config) LLM() llm.Config {
	return llm.Config{
		Endpoint:         c.Model.Endpoint,
		Model:            c.Model.Name,
		APIKey:           c.Model.APIKey,
		Timeout:          c.Model.Timeout,
		MaxTokens:        c.Model.MaxTokens,
		Temperature:      c.Model.Temperature,
		FrequencyPenalty: c.Model.FrequencyPenalty,
	}
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func list(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) bad(key, v string) {
	c.problems = append(c.problems, fmt.Sprintf("%s=%q is malformed", key, v))
}

func (c *Config) envInt(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		c.bad(key, v)
		return def
	}
	return n
}

func (c *Config) envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.bad(key, v)
		return def
	}
	return f
}

func (c *Config) envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		c.bad(key, v)
		return def
	}
	return b
}

func (c *Config) envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		c.bad(key, v)
		return def
	}
	return d
}
