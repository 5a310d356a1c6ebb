package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "https://developer.api.autodesk.com", cfg.GetHost())
	assert.Empty(t, cfg.GetClientID())
	assert.Empty(t, cfg.GetClientSecret())
	assert.Equal(t, "localhost:4317", cfg.Otel.OtlpExporter.Endpoint)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Breaker.Enable)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
}

func TestNewConfig_AppliesOptions(t *testing.T) {
	cfg := NewConfig(
		WithHost("https://auth.example.test"),
		WithClientCredentials("client", "secret"),
		WithScopes("data:read", "bucket:read"),
		WithRedirectURI("https://app.example.test/callback"),
		WithRedisAddr("redis:6379"),
		WithRedisPassword("pw"),
		WithRedisDB(3),
		WithOtlpEndpoint("collector:4317"),
		WithOtlpInsecure(true),
		WithOtelDisable(),
		WithBreaker(2, time.Second, time.Minute),
	)

	assert.Equal(t, "https://auth.example.test", cfg.GetHost())
	assert.Equal(t, "client", cfg.GetClientID())
	assert.Equal(t, "secret", cfg.GetClientSecret())
	assert.Equal(t, []string{"data:read", "bucket:read"}, cfg.Forge.Scopes)
	assert.Equal(t, "https://app.example.test/callback", cfg.Forge.RedirectURI)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "pw", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "collector:4317", cfg.Otel.OtlpExporter.Endpoint)
	assert.True(t, cfg.Otel.OtlpExporter.Insecure)
	assert.True(t, cfg.Otel.Disable)
	assert.Equal(t, BreakerConfig{
		Enable:           true,
		FailureThreshold: 2,
		FailWindow:       time.Second,
		OpenCoolDown:     time.Minute,
	}, cfg.Breaker)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("FORGE_HOST", "https://auth.example.test/")
	t.Setenv("FORGE_CLIENT_ID", "env-client")
	t.Setenv("FORGE_CLIENT_SECRET", "env-secret")
	t.Setenv("FORGE_SCOPES", "data:read data:write")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("BREAKER_ENABLE", "true")
	t.Setenv("BREAKER_FAIL_WINDOW", "15s")

	cfg, err := NewConfigFromEnv(WithRedisAddr("override:6379"))
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "https://auth.example.test/", cfg.GetHost())
	assert.Equal(t, "env-client", cfg.GetClientID())
	assert.Equal(t, "env-secret", cfg.GetClientSecret())
	assert.Equal(t, []string{"data:read", "data:write"}, cfg.Forge.Scopes)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "override:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Breaker.Enable)
	assert.Equal(t, 15*time.Second, cfg.Breaker.FailWindow)
}

func TestNewConfigFromEnv_JoinsParseErrors(t *testing.T) {
	t.Setenv("REDIS_DB", "one")
	t.Setenv("BREAKER_ENABLE", "maybe")

	_, err := NewConfigFromEnv()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "one")
	assert.Contains(t, err.Error(), "maybe")
}

func TestLoadEnv(t *testing.T) {
	err := LoadEnv("os")

	require.NoError(t, err, "missing dotenv files are not an error")
}

func TestValidate(t *testing.T) {
	cfg := NewConfig(WithHost(""))

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORGE_HOST is required")
	assert.Contains(t, err.Error(), "FORGE_CLIENT_ID is required")
	assert.Contains(t, err.Error(), "FORGE_CLIENT_SECRET is required")

	cfg = NewConfig(WithClientCredentials("id", "secret"))
	require.NoError(t, cfg.Validate())

	var nilCfg *Config
	require.Error(t, nilCfg.Validate())
}
