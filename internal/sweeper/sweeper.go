package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"classlog/pkg/cache"
	"classlog/pkg/logger"
)

// Sweeper periodically deletes expired cache envelopes on a cron schedule.
// TTL checks at read time already hide expired entries; the sweep only
// reclaims the space they occupy.

// Start launches the sweep scheduler and returns a cancel func. An empty
// cron expression maps to hourly.
func Start(ctx context.Context, caches *cache.Cache, cronExpr string) (context.CancelFunc, error) {
	if cronExpr == "" {
		cronExpr = "0 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweeper_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid sweeper cron expression: %s", cronExpr)
	}

	logger.Info("sweeper_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, caches, cronExpr)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, caches *cache.Cache, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("sweeper_stopping")
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			runOnce(caches)
			// small sleep to avoid a tight loop
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				logger.Info("sweeper_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			runOnce(caches)
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}
	}
}

func runOnce(caches *cache.Cache) {
	start := time.Now()
	n, err := caches.PurgeExpired()
	if err != nil {
		logger.Error("sweep_run_error", "error", err)
		return
	}
	logger.Info("sweep_run_done", "purged", n, "took_ms", time.Since(start).Milliseconds())
}
