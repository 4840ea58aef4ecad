package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithRequiredURL(t *testing.T) {
	t.Setenv("STATUSDECK_DATABASE__URL", "postgres://localhost:5432/statusdeck")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, float64(10), cfg.Public.RateLimit)
	assert.Equal(t, 64, cfg.Realtime.SendBuffer)
}

func TestLoad_MissingDatabaseURLFails(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("STATUSDECK_DATABASE__URL", "postgres://localhost:5432/statusdeck")
	t.Setenv("STATUSDECK_SERVER__PORT", "9000")
	t.Setenv("STATUSDECK_LOG__LEVEL", "debug")
	t.Setenv("STATUSDECK_DATABASE__CONNECT_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoad_FileThenEnvironmentPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7070"
log:
  level: warn
database:
  url: postgres://file-host:5432/statusdeck
`), 0o600))

	t.Setenv("STATUSDECK_SERVER__PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port, "environment wins over file")
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "postgres://file-host:5432/statusdeck", cfg.Database.URL)
}

func TestLoad_InvalidLogLevelFails(t *testing.T) {
	t.Setenv("STATUSDECK_DATABASE__URL", "postgres://localhost:5432/statusdeck")
	t.Setenv("STATUSDECK_LOG__LEVEL", "verbose")

	_, err := Load("")
	assert.Error(t, err)
}
