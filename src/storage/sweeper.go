package storage

import (
	"context"
	"time"

	"sentiment-observer/src/interfaces"
	"sentiment-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Sweeper
// -----------------------------------------------------------------------------

// Sweeper runs Cleanup on a fixed interval, independent of any read or
// write. Stopped by cancelling the context passed to Run.
type Sweeper struct {
	Cache    interfaces.IBucketCache
	Interval time.Duration
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSweeper(cache interfaces.IBucketCache, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		Cache:    cache,
		Interval: interval,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

// Run blocks until ctx is cancelled. Intended to be launched as a goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Cache.Cleanup(); removed > 0 {
				s.Logger.Info("Sweeper removed %d expired cache entries", removed)
			}
		}
	}
}
