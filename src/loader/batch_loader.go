package loader

import (
	"context"
	"sync"

	"sentiment-observer/src/interfaces"
	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
)

// -----------------------------------------------------------------------------
// Batch Loader
// -----------------------------------------------------------------------------

// BatchLoader serves multi-subject comparison views: one network round trip
// for all subjects, falling back to independent per-subject fetches when the
// batch call fails, so one bad subject never blocks the others.
type BatchLoader struct {
	Cache  interfaces.IBucketCache
	Source interfaces.IBucketSource
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewBatchLoader(cache interfaces.IBucketCache, source interfaces.IBucketSource, log *logger.Logger) *BatchLoader {
	return &BatchLoader{
		Cache:  cache,
		Source: source,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// LoadBatch returns a per-subject series map. Subjects whose data could not
// be fetched on either path are absent from the result. Every fetched series
// is fanned out to the durable cache (one Set per subject).
func (l *BatchLoader) LoadBatch(ctx context.Context, subjects []string, resolution string) map[string][]models.MBucket {
	if len(subjects) == 0 {
		return map[string][]models.MBucket{}
	}

	results, err := l.Source.FetchBatch(ctx, subjects, resolution)
	if err == nil {
		for subject, buckets := range results {
			l.Cache.Set(subject, resolution, buckets)
		}
		return results
	}

	l.Logger.Warning("Batch fetch failed, falling back to per-subject fetches: %v", err)
	return l.loadIndividually(ctx, subjects, resolution)
}

// -----------------------------------------------------------------------------

// loadIndividually fetches every subject concurrently; a failure in one
// subject's fetch only drops that subject.
func (l *BatchLoader) loadIndividually(ctx context.Context, subjects []string, resolution string) map[string][]models.MBucket {
	results := make(map[string][]models.MBucket)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, subject := range subjects {
		wg.Add(1)
		go func(sub string) {
			defer wg.Done()

			buckets, err := l.Source.FetchSeries(ctx, sub, resolution, 0, 0)
			if err != nil {
				l.Logger.Error("Fallback fetch failed for %s: %v", sub, err)
				return // Continue with other subjects
			}

			l.Cache.Set(sub, resolution, buckets)

			mu.Lock()
			results[sub] = buckets
			mu.Unlock()
		}(subject)
	}
	wg.Wait()

	l.Logger.Info("Fallback fetched %d/%d subjects successfully", len(results), len(subjects))
	return results
}
