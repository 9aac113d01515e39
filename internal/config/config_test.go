package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-service/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "Session Service", cfg.AppName)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "DEV", cfg.Env)
	require.Equal(t, config.StoreMemory, cfg.StoreBackend)
	require.Equal(t, 10, cfg.BcryptCost)
	require.Equal(t, time.Hour, cfg.AccessTokenExpiry)
	require.Equal(t, 168*time.Hour, cfg.RefreshTokenExpiry)
	require.Equal(t, 5*time.Second, cfg.StoreTimeout)
	require.Empty(t, cfg.AdminEmail)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "bolt")
	t.Setenv("BOLT_PATH", "/tmp/test.db")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "30m")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, config.StoreBolt, cfg.StoreBackend)
	require.Equal(t, "/tmp/test.db", cfg.BoltPath)
	require.Equal(t, 30*time.Minute, cfg.AccessTokenExpiry)
	require.Equal(t, "admin@example.com", cfg.AdminEmail)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")

	_, err := config.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestLoad_NonPositiveExpiry(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRY", "0s")

	_, err := config.Load()
	require.Error(t, err)
}

func TestListenAddr(t *testing.T) {
	cfg := &config.Config{Port: "8080"}
	require.Equal(t, ":8080", cfg.ListenAddr())

	cfg.Port = ":9090"
	require.Equal(t, ":9090", cfg.ListenAddr())
}
