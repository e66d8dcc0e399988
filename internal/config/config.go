package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CRMDealsURL     string
	CRMCampaignsURL string
	PostgresDSN     string
	RedisAddr       string
	CacheTTL        time.Duration
	SeedFile        string
	Port            string
	HTTPTimeout     time.Duration
	LogLevel        slog.Level
}

// FromEnv loads configuration from the environment, with a .env file as
// fallback for local runs. Missing CRM URLs are allowed here; the caller
// decides whether to fail or run with an empty source.
func FromEnv() Config {
	_ = godotenv.Load()

	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	ttl := 5 * time.Minute
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			ttl = d
		}
	}
	lvl := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = slog.LevelDebug
	}
	return Config{
		CRMDealsURL:     os.Getenv("CRM_DEALS_URL"),
		CRMCampaignsURL: os.Getenv("CRM_CAMPAIGNS_URL"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		CacheTTL:        ttl,
		SeedFile:        os.Getenv("AGENCY_SEED_FILE"),
		Port:            envOr("PORT", "8080"),
		HTTPTimeout:     to,
		LogLevel:        lvl,
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
