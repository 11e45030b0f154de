package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("SESSION_CACHE_SIZE", "not-a-number")
	t.Setenv("SITE_URL", "https://hub.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 1024, cfg.SessionCacheSize)
	assert.Equal(t, "https://hub.example.com", cfg.SiteURL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
}

func TestProduction(t *testing.T) {
	assert.True(t, (&Config{AppEnv: "Production"}).Production())
	assert.True(t, (&Config{AppEnv: "prod"}).Production())
	assert.False(t, (&Config{AppEnv: "development"}).Production())
}

func TestLoadConfigRefusesDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "secret")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrDefaultJWTSecret)

	t.Setenv("JWT_SECRET", "a-long-random-value")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Production())

	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "secret")
	_, err = LoadConfig()
	assert.NoError(t, err)
}

func TestRedirectOrigins(t *testing.T) {
	t.Setenv("SITE_URL", "https://hub.example.com")
	t.Setenv("AUTH_REDIRECT_ORIGINS", " https://admin.example.com, ,http://localhost:5173")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://admin.example.com", "http://localhost:5173"}, cfg.AuthRedirectOrigins)
	assert.Equal(t, []string{"https://hub.example.com", "https://admin.example.com", "http://localhost:5173"}, cfg.RedirectOrigins())
}
