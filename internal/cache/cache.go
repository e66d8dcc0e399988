// Package cache memoizes reconciliation results in Redis. The engine
// stays stateless: a cold or unreachable cache only means recompute.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealerlens/roi-engine/internal/obs"
	"github.com/dealerlens/roi-engine/internal/recon"
)

// ResultCache stores serialized reconciliation results keyed by window.
type ResultCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *ResultCache {
	return &ResultCache{rdb: rdb, ttl: ttl, log: log}
}

func key(start, end time.Time) string {
	return fmt.Sprintf("roi:reconcile:%s:%s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Get returns the cached result for the window, or ok=false on a miss.
// Redis failures are logged and treated as misses.
func (c *ResultCache) Get(ctx context.Context, start, end time.Time) (*recon.Result, bool) {
	raw, err := c.rdb.Get(ctx, key(start, end)).Bytes()
	if err == redis.Nil {
		obs.CacheResults.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		obs.CacheResults.WithLabelValues("error").Inc()
		c.log.Warn("cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	var res recon.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		obs.CacheResults.WithLabelValues("error").Inc()
		c.log.Warn("cache entry corrupt, discarding", slog.String("error", err.Error()))
		return nil, false
	}
	obs.CacheResults.WithLabelValues("hit").Inc()
	return &res, true
}

// Set stores the result for the window. Failures are logged, not returned;
// the caller already has the computed result.
func (c *ResultCache) Set(ctx context.Context, start, end time.Time, res *recon.Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		c.log.Warn("cache marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := c.rdb.Set(ctx, key(start, end), raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", slog.String("error", err.Error()))
	}
}

// Invalidate drops every cached window. Called after an agency report
// upsert, since any window overlapping the changed month is now stale.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, "roi:reconcile:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("drop cache keys: %w", err)
	}
	return nil
}
