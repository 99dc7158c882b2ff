package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "schoolrail.db", cfg.Store.Path)
	assert.Contains(t, cfg.Scrape.SchoolsURL, "bettereducation.com.au")
	assert.Contains(t, cfg.Scrape.StationsURL, "en.wikipedia.org")
	assert.Equal(t, "schoolrail/1.0", cfg.Scrape.UserAgent)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.NominatimBaseURL)
	assert.Equal(t, "Victoria, Australia", cfg.Geocode.Region)
	assert.Equal(t, 2000, cfg.Geocode.DailyQuota)
	assert.Equal(t, 4, cfg.Geocode.BatchConcurrency)
	assert.InDelta(t, 2.0, cfg.Filter.RadiusKm, 0.001)
	assert.Equal(t, "out", cfg.Render.OutputDir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/schoolrail
filter:
  radius_km: 3.5
log:
  level: debug
  format: console
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.InDelta(t, 3.5, cfg.Filter.RadiusKm, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
filter:
  radius_km: 3.5
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SCHOOLRAIL_FILTER_RADIUS_KM", "5")
	t.Setenv("SCHOOLRAIL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.InDelta(t, 5.0, cfg.Filter.RadiusKm, 0.001)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidatePipeline_Defaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate("pipeline"))
}

func TestValidatePipeline_BadRadius(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Filter.RadiusKm = 0

	err = cfg.Validate("pipeline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter.radius_km must be > 0")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Store.Driver = "postgres"

	err = cfg.Validate("pipeline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Server.Port = 0

	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
