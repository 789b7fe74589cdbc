package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string `validate:"required"`
	HTTPPort     string `validate:"required,numeric"`
	DatabasePath string `validate:"required"`
	Debug        bool

	// Object storage holding vendor export files.
	S3Bucket    string
	S3Region    string `validate:"required"`
	S3Endpoint  string
	S3PathStyle bool
	AccessKey   string
	SecretKey   string

	// External vulnerability authority.
	NVDAPIURL string `validate:"required,url"`
	NVDAPIKey string

	// Enrichment pacing.
	EnrichBatchSize int           `validate:"min=1"`
	EnrichDelay     time.Duration `validate:"min=0"`
	EnrichSchedule  string        `validate:"required"`

	// Shared secret for the trigger endpoints. Empty disables auth (local dev).
	TriggerSecret string

	// Optional shoutrrr URL for run summaries.
	NotifyURL string

	// Base URL recorded on the Elastic rule source.
	KibanaURL string
}

// Load reads env vars and falls back to defaults so the pipeline can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:     getEnv("RF_ENV", "development"),
		HTTPPort:        getEnv("RF_HTTP_PORT", "8080"),
		DatabasePath:    getEnv("RF_DB_PATH", filepath.Join("data", "ruleforge.db")),
		Debug:           getEnv("RF_LOG_DEBUG", "") == "1",
		S3Bucket:        getEnv("RF_S3_BUCKET", ""),
		S3Region:        getEnv("RF_S3_REGION", "us-east-1"),
		S3Endpoint:      getEnv("RF_S3_ENDPOINT", ""),
		S3PathStyle:     getEnv("RF_S3_PATH_STYLE", "") == "1",
		AccessKey:       getEnv("RF_ACCESS_KEY", ""),
		SecretKey:       getEnv("RF_SECRET_KEY", ""),
		NVDAPIURL:       getEnv("RF_NVD_API_URL", "https://services.nvd.nist.gov/rest/json/cves/2.0"),
		NVDAPIKey:       getEnv("RF_NVD_API_KEY", ""),
		EnrichBatchSize: getEnvInt("RF_ENRICH_BATCH_SIZE", 50),
		EnrichDelay:     time.Duration(getEnvInt("RF_ENRICH_DELAY_SECONDS", 4)) * time.Second,
		EnrichSchedule:  getEnv("RF_ENRICH_SCHEDULE", "@hourly"),
		TriggerSecret:   getEnv("RF_TRIGGER_SECRET", ""),
		NotifyURL:       getEnv("RF_NOTIFY_URL", ""),
		KibanaURL:       getEnv("RF_KIBANA_URL", ""),
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}
