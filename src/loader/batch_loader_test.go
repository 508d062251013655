package loader

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeCache struct {
	mu   sync.Mutex
	sets map[string][]models.MBucket
}

func (f *fakeCache) Initialize() error { return nil }
func (f *fakeCache) Get(subject, resolution string, startTime, endTime int64) []models.MBucket {
	return nil
}
func (f *fakeCache) Set(subject, resolution string, buckets []models.MBucket) models.MCacheWriteResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets == nil {
		f.sets = make(map[string][]models.MBucket)
	}
	f.sets[subject] = buckets
	return models.MCacheWriteResult{Stored: len(buckets)}
}
func (f *fakeCache) Cleanup() int              { return 0 }
func (f *fakeCache) Clear() error              { return nil }
func (f *fakeCache) Stats() models.MCacheStats { return models.MCacheStats{} }
func (f *fakeCache) Close() error              { return nil }

func (f *fakeCache) cachedSubjects() map[string][]models.MBucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]models.MBucket, len(f.sets))
	for k, v := range f.sets {
		out[k] = v
	}
	return out
}

// -----------------------------------------------------------------------------

type fakeSource struct {
	mu           sync.Mutex
	batchErr     error
	failSubjects map[string]bool
	seriesFor    map[string][]models.MBucket
	seriesCalls  int
}

func (f *fakeSource) FetchSeries(ctx context.Context, subject, resolution string, startTime, endTime int64) ([]models.MBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seriesCalls++
	if f.failSubjects[subject] {
		return nil, fmt.Errorf("upstream rejected %s", subject)
	}
	return f.seriesFor[subject], nil
}

func (f *fakeSource) FetchBatch(ctx context.Context, subjects []string, resolution string) (map[string][]models.MBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make(map[string][]models.MBucket, len(subjects))
	for _, s := range subjects {
		out[s] = f.seriesFor[s]
	}
	return out, nil
}

func (f *fakeSource) fetchSeriesCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seriesCalls
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func seriesFor(subjects ...string) map[string][]models.MBucket {
	out := make(map[string][]models.MBucket, len(subjects))
	for _, s := range subjects {
		out[s] = []models.MBucket{{Subject: s, Resolution: "1h", BucketTimestamp: 3600, Avg: 0.1}}
	}
	return out
}

// -----------------------------------------------------------------------------
// Batch path
// -----------------------------------------------------------------------------

func TestBatchLoaderSingleRoundTrip(t *testing.T) {
	cache := &fakeCache{}
	source := &fakeSource{seriesFor: seriesFor("AAPL", "TSLA", "GOOG")}
	l := NewBatchLoader(cache, source, logger.NewLogger("ERROR", "test"))

	results := l.LoadBatch(context.Background(), []string{"AAPL", "TSLA", "GOOG"}, "1h")

	require.Len(t, results, 3)
	assert.Zero(t, source.fetchSeriesCount())

	// Every fetched series is fanned out to the cache
	assert.Len(t, cache.cachedSubjects(), 3)
}

// -----------------------------------------------------------------------------

func TestBatchLoaderEmptySubjects(t *testing.T) {
	cache := &fakeCache{}
	source := &fakeSource{}
	l := NewBatchLoader(cache, source, logger.NewLogger("ERROR", "test"))

	results := l.LoadBatch(context.Background(), nil, "1h")
	assert.Empty(t, results)
	assert.Empty(t, cache.cachedSubjects())
}

// -----------------------------------------------------------------------------
// Fallback path
// -----------------------------------------------------------------------------

func TestBatchLoaderFallsBackPerSubject(t *testing.T) {
	cache := &fakeCache{}
	source := &fakeSource{
		batchErr:  fmt.Errorf("batch endpoint unavailable"),
		seriesFor: seriesFor("AAPL", "TSLA"),
	}
	l := NewBatchLoader(cache, source, logger.NewLogger("ERROR", "test"))

	results := l.LoadBatch(context.Background(), []string{"AAPL", "TSLA"}, "1h")

	require.Len(t, results, 2)
	assert.Equal(t, 2, source.fetchSeriesCount())
	assert.Len(t, cache.cachedSubjects(), 2)
}

// -----------------------------------------------------------------------------

func TestBatchLoaderFallbackIsolatesFailures(t *testing.T) {
	cache := &fakeCache{}
	source := &fakeSource{
		batchErr:     fmt.Errorf("batch endpoint unavailable"),
		failSubjects: map[string]bool{"TSLA": true},
		seriesFor:    seriesFor("AAPL", "GOOG"),
	}
	l := NewBatchLoader(cache, source, logger.NewLogger("ERROR", "test"))

	results := l.LoadBatch(context.Background(), []string{"AAPL", "TSLA", "GOOG"}, "1h")

	// The failing subject is absent, the others survive
	require.Len(t, results, 2)
	assert.Contains(t, results, "AAPL")
	assert.Contains(t, results, "GOOG")
	assert.NotContains(t, results, "TSLA")

	cached := cache.cachedSubjects()
	assert.Len(t, cached, 2)
	assert.NotContains(t, cached, "TSLA")
}
