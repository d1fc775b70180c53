package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("AUTH_ISSUER", "auth-service")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_SECONDS", "900")
	t.Setenv("REVOCATION_BACKEND", "")
	t.Setenv("AUTH_PUBLIC_ROUTES", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "auth-service", cfg.Auth.Issuer)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL())
	assert.Equal(t, RevocationBackendPostgres, cfg.Revocation.Backend)
	assert.Equal(t, defaultPublicRoutes, cfg.Auth.PublicRoutes)
}

func TestLoadMissingTokenSettings(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_ISSUER", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_SECONDS", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
	assert.Contains(t, err.Error(), "AUTH_ISSUER")
	assert.Contains(t, err.Error(), "AUTH_ACCESS_TOKEN_TTL_SECONDS")
}

func TestLoadRejectsBadTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_SECONDS", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REVOCATION_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestLoadPublicRoutesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_PUBLIC_ROUTES", " /login , /health/live ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/login", "/health/live"}, cfg.Auth.PublicRoutes)
}

func TestLoadFileOverlay(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_ISSUER", "")
	t.Setenv("REDIS_KEY_PREFIX", "")

	path := filepath.Join(t.TempDir(), "auth.yaml")
	content := []byte(`
AUTH_ISSUER: from-file
AUTH_ACCESS_TOKEN_TTL_SECONDS: 60
REDIS_KEY_PREFIX: "file:revoked:"
AUTH_PUBLIC_ROUTES:
  - /a
  - /b
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Auth.Issuer)
	// environment wins over the file
	assert.Equal(t, 900, cfg.Auth.AccessTokenTTLSeconds)
	assert.Equal(t, "file:revoked:", cfg.Redis.KeyPrefix)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Auth.PublicRoutes)
}

func TestValidationTimeout(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, AuthConfig{ValidationTimeoutMillis: 250}.ValidationTimeout())
	assert.Zero(t, AuthConfig{}.ValidationTimeout())
	assert.Zero(t, AppConfig{}.RequestTimeout())
}
