package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/screenpilot/pkg/config"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT", "MAX_BODY_BYTES", "CORS_ORIGINS",
	"MODEL_ENDPOINT", "MODEL_NAME", "MODEL_API_KEY", "MODEL_TIMEOUT", "MODEL_MAX_TOKENS",
	"MODEL_TEMPERATURE", "MODEL_FREQUENCY_PENALTY",
	"AUTH_JWT_SECRET", "AUTH_JWT_ISSUER", "IDENTITY_URL", "IDENTITY_API_KEY",
	"PERMISSION_BACKEND", "DATABASE_URL", "SQLITE_PATH", "REDIS_ADDR", "PERMISSION_POLICY",
	"PREDICT_REQUIRE_AUTH", "PREDICT_RESOURCE", "OTEL_ENABLED", "OTEL_ENDPOINT", "OTEL_INSECURE",
}

func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

// TestLoad_Defaults verifies that the service boots with safe defaults.
func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, int64(20<<20), cfg.MaxBodyBytes)
	assert.Empty(t, cfg.CORSOrigins)
	assert.Equal(t, "https://api.siliconflow.cn/v1/chat/completions", cfg.Model.Endpoint)
	assert.Equal(t, "Qwen/Qwen2.5-VL-32B-Instruct", cfg.Model.Name)
	assert.Equal(t, 60*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 1000, cfg.Model.MaxTokens)
	assert.Equal(t, 0.2, cfg.Model.Temperature)
	assert.Equal(t, 0.1, cfg.Model.FrequencyPenalty)
	assert.Equal(t, config.BackendNone, cfg.Permissions.Backend)
	assert.False(t, cfg.Predict.RequireAuth)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.NoError(t, cfg.Validate())
}

// TestLoad_Overrides verifies 12-factor env overrides.
func TestLoad_Overrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("MODEL_TIMEOUT", "15s")
	t.Setenv("MODEL_TEMPERATURE", "0")
	t.Setenv("PERMISSION_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://db:5432/app")
	t.Setenv("PREDICT_REQUIRE_AUTH", "true")
	t.Setenv("PREDICT_RESOURCE", "browser-automation")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 0.0, cfg.Model.Temperature)
	assert.Equal(t, config.BackendPostgres, cfg.Permissions.Backend)
	assert.True(t, cfg.Predict.RequireAuth)
	assert.NoError(t, cfg.Validate())

	llmCfg := cfg.LLM()
	assert.Equal(t, 15*time.Second, llmCfg.Timeout)
	assert.Equal(t, "Qwen/Qwen2.5-VL-32B-Instruct", llmCfg.Model)
}

func TestValidate_ResourceImpliesAuth(t *testing.T) {
	cleanEnv(t)
	t.Setenv("PERMISSION_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/perms.db")
	t.Setenv("PREDICT_RESOURCE", "browser-automation")

	cfg := config.Load()
	assert.False(t, cfg.Predict.RequireAuth)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"malformed timeout", map[string]string{"MODEL_TIMEOUT": "soon"}},
		{"malformed bool", map[string]string{"PREDICT_REQUIRE_AUTH": "maybe"}},
		{"temperature too high", map[string]string{"MODEL_TEMPERATURE": "3"}},
		{"zero max tokens", map[string]string{"MODEL_MAX_TOKENS": "0"}},
		{"postgres without url", map[string]string{"PERMISSION_BACKEND": "postgres"}},
		{"cel without policy", map[string]string{"PERMISSION_BACKEND": "cel"}},
		{"unknown backend", map[string]string{"PERMISSION_BACKEND": "ldap"}},
		{"resource without backend", map[string]string{"PREDICT_REQUIRE_AUTH": "true", "PREDICT_RESOURCE": "x"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad port", map[string]string{"PORT": "http"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Error(t, config.Load().Validate())
		})
	}
}

func TestLoadFile_Overlay(t *testing.T) {
	cleanEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("MODEL_API_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "screenpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: warn
cors_origins: ["https://app.example.com"]
model:
  name: Qwen/Qwen2.5-VL-7B-Instruct
  timeout: 30s
permissions:
  backend: cel
  policy: user.emailVerified
predict:
  require_auth: true
  resource: browser-automation
`), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.Model.APIKey)
	assert.Equal(t, "Qwen/Qwen2.5-VL-7B-Instruct", cfg.Model.Name)
	assert.Equal(t, 30*time.Second, cfg.Model.Timeout)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, config.BackendCEL, cfg.Permissions.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_Errors(t *testing.T) {
	cleanEnv(t)
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modle:\n  name: x\n"), 0o600))
	_, err = config.LoadFile(path)
	assert.Error(t, err)

	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}
