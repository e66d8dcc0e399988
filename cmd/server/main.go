package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealerlens/roi-engine/internal/agency"
	"github.com/dealerlens/roi-engine/internal/attribution"
	"github.com/dealerlens/roi-engine/internal/cache"
	"github.com/dealerlens/roi-engine/internal/config"
	"github.com/dealerlens/roi-engine/internal/crm"
	"github.com/dealerlens/roi-engine/internal/httpx"
	"github.com/dealerlens/roi-engine/internal/recon"
	"github.com/dealerlens/roi-engine/internal/repository/postgres"
)

func main() {
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	reports, cleanup := newReportStore(cfg, logger)
	defer cleanup()

	cl := crm.NewHTTPClient(cfg.HTTPTimeout)
	src := crm.NewSource(cl, cfg.CRMDealsURL, cfg.CRMCampaignsURL, logger)

	svc := recon.NewService(src, src, reports, attribution.NewMatcher(), logger)

	var rc httpx.ResultCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		rc = cache.New(rdb, cfg.CacheTTL, logger)
		logger.Info("result cache enabled", slog.String("redis", cfg.RedisAddr))
	}

	r := httpx.NewRouter(logger, svc, reports, rc)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

// newReportStore prefers Postgres when a DSN is configured, falling back
// to an in-memory store seeded from the optional YAML file.
func newReportStore(cfg config.Config, logger *slog.Logger) (agency.ReportStore, func()) {
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			logger.Error("postgres unavailable", slog.String("err", err.Error()))
			os.Exit(1)
		}
		logger.Info("agency reports backed by postgres")
		return postgres.NewReportRepo(db), func() { db.Close() }
	}

	st := agency.NewMemoryStore()
	if cfg.SeedFile != "" {
		n, err := agency.LoadSeed(context.Background(), st, cfg.SeedFile)
		if err != nil {
			logger.Error("seed load failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		logger.Info("agency reports seeded", slog.String("file", cfg.SeedFile), slog.Int("count", n))
	}
	return st, func() {}
}
