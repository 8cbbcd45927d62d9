package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const sweepTimeout = 2 * time.Minute

// DLQSweeper periodically drops dead-lettered suggestion jobs that have aged
// past retention. Without it, failed jobs accumulate in the DLQ forever.
type DLQSweeper struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewDLQSweeper creates a sweeper. A nil purger disables sweeping, which lets
// the server run with a queue implementation that has no DLQ.
func NewDLQSweeper(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *DLQSweeper {
	return &DLQSweeper{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Run sweeps once immediately, then on every interval tick until ctx is
// cancelled. Sweep failures are logged and do not stop the loop.
func (s *DLQSweeper) Run(ctx context.Context) error {
	if err := s.sweep(ctx); err != nil && s.logger != nil {
		s.logger.Warn("dlq_sweep_error", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil && s.logger != nil {
				s.logger.Warn("dlq_sweep_error", zap.Error(err))
			}
		}
	}
}

func (s *DLQSweeper) sweep(ctx context.Context) error {
	if s.purger == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	purged, err := s.purger.PurgeOlderThan(ctx, s.retention)
	if err != nil {
		return fmt.Errorf("DLQ purge: %w", err)
	}
	if purged > 0 && s.logger != nil {
		s.logger.Info("dlq_swept",
			zap.Int("purged", purged),
			zap.Duration("retention", s.retention),
		)
	}
	return nil
}
