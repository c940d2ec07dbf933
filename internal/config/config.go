package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all environment-driven settings for the dashboard service.
type Config struct {
	DatabaseURL string
	Port        int

	JWTSecret      string
	SessionTTL     time.Duration
	TOTPIssuer     string
	RememberDevice time.Duration // trusted device lifetime

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	ExportBucket   string

	DefaultPageSize  int
	MaxPageSize      int
	CSVExportMaxRows int
}

// Load reads configuration from the environment. DATABASE_URL is required;
// everything else has development defaults.
func Load() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg := &Config{
		DatabaseURL:      databaseURL,
		Port:             envInt("PORT", 8080),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		SessionTTL:       time.Duration(envInt("SESSION_TTL_HOURS", 12)) * time.Hour,
		TOTPIssuer:       envString("TOTP_ISSUER", "SoundCheck Financial"),
		RememberDevice:   time.Duration(envInt("MFA_REMEMBER_DEVICE_DAYS", 7)) * 24 * time.Hour,
		RedisAddr:        envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          envInt("REDIS_DB", 0),
		MinioEndpoint:    envString("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:   envString("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:   envString("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:      os.Getenv("MINIO_USE_SSL") == "true",
		ExportBucket:     envString("EXPORT_BUCKET", "exports"),
		DefaultPageSize:  envInt("DEFAULT_PAGE_SIZE", 25),
		MaxPageSize:      envInt("MAX_PAGE_SIZE", 100),
		CSVExportMaxRows: envInt("CSV_EXPORT_MAX_ROWS", 250000),
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
