package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/keepmark/internal/logger"
	redisstore "github.com/MrSnakeDoc/keepmark/internal/store/redis"
)

// Sweeper repairs store indexes
type Sweeper interface {
	Sweep(ctx context.Context) (redisstore.SweepResult, error)
}

// IndexSweeper periodically removes owner index entries that point to
// missing bookmark documents
type IndexSweeper struct {
	store    Sweeper
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewIndexSweeper creates a new index sweeper
func NewIndexSweeper(store Sweeper, log logger.Logger, interval time.Duration) *IndexSweeper {
	return &IndexSweeper{
		store:    store,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (is *IndexSweeper) Start(ctx context.Context) error {
	// Run immediately on start
	if err := is.Sweep(ctx); err != nil {
		is.logger.Warn("initial index sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(is.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := is.Sweep(ctx); err != nil {
					is.logger.Error("index sweep failed",
						logger.Error(err))
				}
			case <-is.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper
func (is *IndexSweeper) Stop() {
	close(is.stopCh)
}

// Sweep runs one pass
func (is *IndexSweeper) Sweep(ctx context.Context) error {
	is.logger.Debug("running index sweep")

	res, err := is.store.Sweep(ctx)
	if err != nil {
		return err
	}

	if removed := res.Sorted + res.URLs; removed > 0 {
		is.logger.Info("index sweep completed",
			logger.Int("owners", res.Owners),
			logger.Int("checked", res.Checked),
			logger.Int("dangling_ids_removed", res.Sorted),
			logger.Int("dangling_urls_removed", res.URLs))
	} else {
		is.logger.Debug("no dangling index entries",
			logger.Int("owners", res.Owners),
			logger.Int("checked", res.Checked))
	}

	return nil
}
