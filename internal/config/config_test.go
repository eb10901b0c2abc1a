package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "http://localhost:5173", cfg.Server.FrontendURL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.OwnerTokenTTL)
	assert.Equal(t, []string{"USD", "EUR"}, cfg.Bitcoin.DirectCurrencies)
	assert.Equal(t, time.Hour, cfg.Rates.TTL)
	assert.Equal(t, "USD", cfg.Owner.Currency)
	assert.False(t, cfg.Auth.AutoLogin)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "8080")
	t.Setenv("FRONTEND_URL", "https://tracker.example.com")
	t.Setenv("BITCOIN_DIRECT_CURRENCIES", "usd, eur,gbp")
	t.Setenv("EXCHANGE_RATE_TTL", "30m")
	t.Setenv("AUTO_LOGIN", "true")
	t.Setenv("OWNER_CURRENCY", "rsd")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://tracker.example.com", cfg.Server.FrontendURL)
	assert.Equal(t, []string{"USD", "EUR", "GBP"}, cfg.Bitcoin.DirectCurrencies)
	assert.Equal(t, 30*time.Minute, cfg.Rates.TTL)
	assert.True(t, cfg.Auth.AutoLogin)
	assert.Equal(t, "RSD", cfg.Owner.Currency)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	dir := t.TempDir()
	content := []byte("server:\n  port: \"9000\"\nlog:\n  level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestValidate_Driver(t *testing.T) {
	cfg := Config{Auth: AuthConfig{JWTSecret: "secret"}, Database: DatabaseConfig{Driver: "postgres"}}
	assert.Error(t, cfg.Validate())

	cfg.Database.ConnectionString = "postgres://localhost/tracker"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}
