package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "mock", cfg.AIProvider)
	assert.Equal(t, 24*time.Hour, cfg.Auth.DevTokenTTL)
	assert.Equal(t, time.Minute, cfg.CirculationSyncInterval)
	assert.Equal(t, AuthModeNone, cfg.Auth.Mode())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DEV_AUTH_ENABLED", "true")
	t.Setenv("OIDC_ISSUER_URL", "https://issuer.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.ServerPort)
	assert.Len(t, cfg.CORSOrigins, 2)
	assert.Equal(t, "https://issuer.example/", cfg.Auth.OIDCIssuerURL, "issuer is compared verbatim against iss")
	assert.Equal(t, AuthModeOIDC, cfg.Auth.Mode())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mongo")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_DRIVER")
}

func TestAuthModeDev(t *testing.T) {
	a := AuthConfig{DevAuthEnabled: true, JWTSecret: "s"}
	assert.Equal(t, AuthModeDev, a.Mode())
}
