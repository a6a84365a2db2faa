package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/lumina-id/lumina-id/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "lumina-id", cfg.TokenIssuer)
	require.Equal(t, time.Hour, cfg.TokenTTL)
	require.Equal(t, 24*time.Hour, cfg.ActionTokenTTL)
	require.Equal(t, 10, cfg.MaxLoginAttempts)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSigningKey(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestIsProduction(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", "secret")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
}
