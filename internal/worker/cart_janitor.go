package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/flicky/plant-shop-api/internal/config"
	"github.com/flicky/plant-shop-api/internal/repository"
)

const abandonedReportLimit = 100

// CartJanitor periodically deletes empty carts nobody has touched in a while
// and reports carts that still hold items but have gone stale.
type CartJanitor struct {
	carts repository.CartRepository
	cfg   config.CartConfig
	log   *slog.Logger
	now   func() time.Time
}

func NewCartJanitor(carts repository.CartRepository, cfg config.CartConfig, log *slog.Logger) *CartJanitor {
	return &CartJanitor{carts: carts, cfg: cfg, log: log, now: time.Now}
}

// Run sweeps once per interval until ctx is cancelled.
func (j *CartJanitor) Run(ctx context.Context) {
	if j.cfg.CleanupInterval <= 0 {
		j.log.Info("cart janitor disabled")
		return
	}
	ticker := time.NewTicker(j.cfg.CleanupInterval)
	defer ticker.Stop()

	j.log.Info("cart janitor started", "interval", j.cfg.CleanupInterval)
	for {
		select {
		case <-ticker.C:
			j.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one cleanup pass and returns how many empty carts were deleted
// and how many abandoned carts were found.
func (j *CartJanitor) Sweep(ctx context.Context) (deleted int64, abandoned int) {
	now := j.now()

	deleted, err := j.carts.DeleteEmptyBefore(ctx, now.Add(-j.cfg.EmptyTTL))
	if err != nil {
		j.log.Error("delete empty carts", "error", err)
	} else if deleted > 0 {
		j.log.Info("deleted empty carts", "count", deleted)
	}

	stale, err := j.carts.ListAbandoned(ctx, now.Add(-j.cfg.AbandonedAfter), abandonedReportLimit)
	if err != nil {
		j.log.Error("list abandoned carts", "error", err)
		return deleted, 0
	}
	for _, c := range stale {
		j.log.Info("abandoned cart",
			"cart_id", c.ID,
			"items", c.ItemCount(),
			"total", c.TotalAmount.StringFixed(2),
			"updated_at", c.UpdatedAt,
		)
	}
	return deleted, len(stale)
}
