package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RF_DB_PATH", filepath.Join(t.TempDir(), "ruleforge.db"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "https://services.nvd.nist.gov/rest/json/cves/2.0", cfg.NVDAPIURL)
	assert.Equal(t, 50, cfg.EnrichBatchSize)
	assert.Equal(t, 4*time.Second, cfg.EnrichDelay)
	assert.Equal(t, "@hourly", cfg.EnrichSchedule)
	assert.False(t, cfg.Debug)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RF_DB_PATH", filepath.Join(t.TempDir(), "ruleforge.db"))
	t.Setenv("RF_ENV", "production")
	t.Setenv("RF_HTTP_PORT", "9090")
	t.Setenv("RF_LOG_DEBUG", "1")
	t.Setenv("RF_ENRICH_BATCH_SIZE", "10")
	t.Setenv("RF_ENRICH_DELAY_SECONDS", "6")
	t.Setenv("RF_S3_PATH_STYLE", "1")
	t.Setenv("RF_NVD_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 10, cfg.EnrichBatchSize)
	assert.Equal(t, 6*time.Second, cfg.EnrichDelay)
	assert.True(t, cfg.S3PathStyle)
	assert.Equal(t, "key", cfg.NVDAPIKey)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("RF_DB_PATH", filepath.Join(t.TempDir(), "ruleforge.db"))
	t.Setenv("RF_HTTP_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("RF_ENRICH_BATCH_SIZE", "many")
	assert.Equal(t, 50, getEnvInt("RF_ENRICH_BATCH_SIZE", 50))
}
