package merge

import (
	"sync"
	"testing"

	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
	"sentiment-observer/src/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type setCall struct {
	subject    string
	resolution string
	buckets    []models.MBucket
}

type fakeCache struct {
	mu   sync.Mutex
	sets []setCall
}

func (f *fakeCache) Initialize() error { return nil }
func (f *fakeCache) Get(subject, resolution string, startTime, endTime int64) []models.MBucket {
	return nil
}
func (f *fakeCache) Set(subject, resolution string, buckets []models.MBucket) models.MCacheWriteResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, setCall{subject, resolution, buckets})
	return models.MCacheWriteResult{Stored: len(buckets)}
}
func (f *fakeCache) Cleanup() int              { return 0 }
func (f *fakeCache) Clear() error              { return nil }
func (f *fakeCache) Stats() models.MCacheStats { return models.MCacheStats{} }
func (f *fakeCache) Close() error              { return nil }

func (f *fakeCache) setCalls() []setCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]setCall, len(f.sets))
	copy(out, f.sets)
	return out
}

// -----------------------------------------------------------------------------

type fakeExchanger struct {
	mu     sync.Mutex
	frames []*models.MRenderFrame
}

func (f *fakeExchanger) Broadcast(frame *models.MRenderFrame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}
func (f *fakeExchanger) Start() error { return nil }
func (f *fakeExchanger) Stop() error  { return nil }

func (f *fakeExchanger) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func newTestEngine() (*Engine, *view.ViewState, *fakeCache, *fakeExchanger) {
	state := view.NewViewState(100)
	state.SetView("AAPL", "1h")

	cache := &fakeCache{}
	exchanger := &fakeExchanger{}
	engine := NewEngine(state, cache, exchanger, logger.NewLogger("ERROR", "test"))
	return engine, state, cache, exchanger
}

func event(eventType models.StreamEventType, subject, res string, ts int64, avg float64) models.MStreamEvent {
	return models.MStreamEvent{
		Type: eventType,
		Bucket: models.MBucket{
			Subject:         subject,
			Resolution:      res,
			BucketTimestamp: ts,
			Avg:             avg,
		},
	}
}

// -----------------------------------------------------------------------------
// Merge semantics
// -----------------------------------------------------------------------------

func TestEnginePartialMergesWithoutPersisting(t *testing.T) {
	engine, state, cache, exchanger := newTestEngine()

	engine.Apply(event(models.StreamEventPartial, "AAPL", "1h", 3600, 0.3))

	series := state.Series()
	require.Len(t, series, 1)
	assert.Equal(t, 0.3, series[0].Avg)
	assert.False(t, series[0].Final)

	// Partials never reach the durable cache
	assert.Empty(t, cache.setCalls())
	assert.Equal(t, 1, exchanger.frameCount())
}

// -----------------------------------------------------------------------------

func TestEngineFinalPersistsToCache(t *testing.T) {
	engine, state, cache, _ := newTestEngine()

	engine.Apply(event(models.StreamEventPartial, "AAPL", "1h", 3600, 0.3))
	engine.Apply(event(models.StreamEventFinal, "AAPL", "1h", 3600, 0.35))

	series := state.Series()
	require.Len(t, series, 1)
	assert.Equal(t, 0.35, series[0].Avg)
	assert.True(t, series[0].Final)

	calls := cache.setCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "AAPL", calls[0].subject)
	assert.Equal(t, "1h", calls[0].resolution)
	require.Len(t, calls[0].buckets, 1)
	assert.True(t, calls[0].buckets[0].Final)
}

// -----------------------------------------------------------------------------

func TestEngineDuplicateFinalIsIdempotent(t *testing.T) {
	engine, state, _, _ := newTestEngine()

	e := event(models.StreamEventFinal, "AAPL", "1h", 3600, 0.35)
	engine.Apply(e)
	engine.Apply(e)

	assert.Len(t, state.Series(), 1)
}

// -----------------------------------------------------------------------------

func TestEngineDropsOffViewEvents(t *testing.T) {
	engine, state, cache, exchanger := newTestEngine()

	engine.Apply(event(models.StreamEventFinal, "TSLA", "1h", 3600, 0.3))
	engine.Apply(event(models.StreamEventFinal, "AAPL", "1d", 3600, 0.3))

	assert.Empty(t, state.Series())
	assert.Empty(t, cache.setCalls())
	assert.Zero(t, exchanger.frameCount())
}

// -----------------------------------------------------------------------------

func TestEngineStreamErrorIsLogOnly(t *testing.T) {
	engine, state, _, exchanger := newTestEngine()
	state.SetSeries([]models.MBucket{{Subject: "AAPL", Resolution: "1h", BucketTimestamp: 3600}})

	engine.Apply(models.MStreamEvent{Type: models.StreamEventError, Err: assert.AnError})

	// Series untouched, no frame pushed
	assert.Len(t, state.Series(), 1)
	assert.Zero(t, exchanger.frameCount())
}

// -----------------------------------------------------------------------------
// Latency accounting
// -----------------------------------------------------------------------------

func TestEngineLatencyStats(t *testing.T) {
	engine, _, _, _ := newTestEngine()

	e1 := event(models.StreamEventFinal, "AAPL", "1h", 3600, 0.3)
	e1.OriginTimestampMs = 1000
	e1.ReceivedAtMs = 1100
	engine.Apply(e1)

	e2 := event(models.StreamEventFinal, "AAPL", "1h", 7200, 0.3)
	e2.OriginTimestampMs = 2000
	e2.ReceivedAtMs = 2300
	engine.Apply(e2)

	// Origin clock ahead of ours: flagged, excluded from the average
	e3 := event(models.StreamEventFinal, "AAPL", "1h", 10800, 0.3)
	e3.OriginTimestampMs = 5000
	e3.ReceivedAtMs = 4000
	engine.Apply(e3)

	stats := engine.LatencyStats()
	assert.Equal(t, int64(2), stats.Samples)
	assert.Equal(t, int64(1), stats.ClockSkews)
	assert.InDelta(t, 200.0, stats.AvgLatencyMs, 0.001)
}
