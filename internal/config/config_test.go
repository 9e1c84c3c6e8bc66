package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("LOCAL_BACKEND_ENDPOINT", "http://localhost:5000/api/")
	t.Setenv("FORWARD_TIMEOUT", "3s")
	t.Setenv("VERIFY_TOKEN", "secret")
	t.Setenv("WAHA_WEBHOOK_HMAC_KEY", "hook-key")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "http://localhost:5000/api", cfg.Forward.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.Forward.Timeout)
	assert.Equal(t, "secret", cfg.VerifyToken)
	assert.Equal(t, "hook-key", cfg.Chat.WebhookHMACKey)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("API_BASE_PATH", "")
	t.Setenv("SESSION_ID", "")
	t.Setenv("MONGO_URI", "")
	t.Setenv("MINIO_ENDPOINT", "")

	cfg := Load()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "/api", cfg.APIBasePath)
	assert.Equal(t, "property-bot-session", cfg.Chat.SessionID)
	assert.False(t, cfg.UseMongo())
	assert.False(t, cfg.UseMinIO())
}

func TestNormalizeBasePath(t *testing.T) {
	assert.Equal(t, "", normalizeBasePath("/"))
	assert.Equal(t, "", normalizeBasePath("  "))
	assert.Equal(t, "/api", normalizeBasePath("api"))
	assert.Equal(t, "/api/v1", normalizeBasePath("/api/v1/"))
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	t.Setenv(key, "value")

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	t.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	t.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	t.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	t.Setenv(key, "")
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	t.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	t.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"

	t.Setenv(key, "45s")
	assert.Equal(t, 45*time.Second, getEnvDuration(key, time.Second))

	t.Setenv(key, "soon")
	assert.Equal(t, time.Second, getEnvDuration(key, time.Second))
}
