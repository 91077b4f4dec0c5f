package engine

import (
	"context"
	"time"
)

// DefaultTickInterval is how often Run reconciles the state with the clock.
const DefaultTickInterval = 30 * time.Second

// Tick reconciles the state with the clock, publishing the poem if the
// published phase has been reached, and purges expired vote markers.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	_, err := e.current(ctx)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	n, err := e.repo.Store().PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		e.logger.Debug("purged expired keys", "count", n)
	}
	return nil
}

// Run calls Tick every interval until ctx is cancelled. Tick errors are
// logged and do not stop the loop.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := e.Tick(ctx); err != nil {
		e.logger.Error("tick failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				e.logger.Error("tick failed", "error", err)
			}
		}
	}
}
