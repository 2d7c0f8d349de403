package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://vix.app , ,https://admin.vix.app")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, []string{"https://vix.app", "https://admin.vix.app"}, cfg.AllowedOrigins)
	assert.Equal(t, "1.5", cfg.Economy.ConversionRate)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestFromEnv_RejectsMemoryInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://vix.app")
	t.Setenv("DATABASE_DRIVER", "memory")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "memory")
}

func TestFromEnv_BadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("IDEMPOTENCY_TTL", "tomorrow")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "IDEMPOTENCY_TTL")
}

func TestFromEnv_BuildsPostgresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_HOST", "db")
	t.Setenv("POSTGRESQL_USER", "vix")
	t.Setenv("POSTGRESQL_PASSWORD", "p@ss")
	t.Setenv("POSTGRESQL_DBNAME", "economy")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://vix:p%40ss@db:5432/economy?sslmode=disable", cfg.DatabaseURL)
}

func TestLoadEconomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "economy.toml")
	require.NoError(t, os.WriteFile(path, []byte("conversion_rate = \"2\"\nmax_tip = 1000\n"), 0o600))

	eco, err := LoadEconomy(path)
	require.NoError(t, err)
	assert.Equal(t, "2", eco.ConversionRate)
	assert.Equal(t, int64(1000), eco.MaxTip)
	assert.Zero(t, eco.MinOrderAmount)

	require.NoError(t, os.WriteFile(path, []byte("conversion_rate = \"-1\"\n"), 0o600))
	_, err = LoadEconomy(path)
	assert.Error(t, err)

	_, err = LoadEconomy(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
