package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RefreshWorker triggers EnsureFresh on a fixed interval. The due check in
// the Manager limits how often a refresh actually happens.
//
// Tick failures, panics included, are logged and dropped; the next tick
// retries. A failing refresh never stops the worker.
type RefreshWorker struct {
	refresher Refresher
	logger    zerolog.Logger
	interval  time.Duration
	timeout   time.Duration
}

// NewRefreshWorker builds a worker; zero interval or timeout select 24h and 30s.
func NewRefreshWorker(refresher Refresher, interval, timeout time.Duration, logger zerolog.Logger) *RefreshWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RefreshWorker{
		refresher: refresher,
		logger:    logger.With().Str("component", "pool_refresh_worker").Logger(),
		interval:  interval,
		timeout:   timeout,
	}
}

// Run blocks until context cancellation.
func (w *RefreshWorker) Run(ctx context.Context) error {
	if w.refresher == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.tick(ctx); err != nil {
				w.logger.Warn().Err(err).Dur("retry_in", w.interval).Msg("scheduled refresh failed")
			}
		}
	}
}

func (w *RefreshWorker) tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	_, err = w.refresher.EnsureFresh(ctx)
	return err
}
