package merge

import (
	"context"
	"sync"

	"sentiment-observer/src/interfaces"
	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
	"sentiment-observer/src/view"
)

// -----------------------------------------------------------------------------
// Live Merge Engine
// -----------------------------------------------------------------------------

// Engine consumes the push-event channel and folds events into the displayed
// series. It is the sole mutator of the series outside of full switches, and
// processes events strictly one at a time: Run is the single dispatch site.
type Engine struct {
	View      *view.ViewState
	Cache     interfaces.IBucketCache
	Exchanger interfaces.IDataExchanger
	Logger    *logger.Logger

	mu             sync.Mutex
	samples        int64
	totalLatencyMs int64
	skews          int64
}

// -----------------------------------------------------------------------------

func NewEngine(state *view.ViewState, cache interfaces.IBucketCache, exchanger interfaces.IDataExchanger, log *logger.Logger) *Engine {
	return &Engine{
		View:      state,
		Cache:     cache,
		Exchanger: exchanger,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// Run dispatches events sequentially until the channel closes or ctx is
// cancelled. No two events interleave mid-merge.
func (e *Engine) Run(ctx context.Context, events <-chan models.MStreamEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			e.Apply(event)
		}
	}
}

// -----------------------------------------------------------------------------

// Apply folds one event into the view. Exported so tests can drive the
// engine without a live stream.
func (e *Engine) Apply(event models.MStreamEvent) {
	switch event.Type {
	case models.StreamEventError:
		// Transient: the transport self-heals, this is log-only.
		e.Logger.Warning("Stream error: %v", event.Err)
		return
	case models.StreamEventPartial, models.StreamEventFinal:
	default:
		e.Logger.Debug("Ignoring unknown event type %q", event.Type)
		return
	}

	b := event.Bucket

	// The upstream filter should already restrict to the active view, but
	// events from a just-torn-down subscription may still be queued.
	if !e.View.Matches(b.Subject, b.Resolution) {
		e.Logger.Debug("Dropping off-view event for %s/%s", b.Subject, b.Resolution)
		return
	}

	b.Final = event.Type == models.StreamEventFinal
	e.View.Merge(b)

	// Only closed buckets are authoritative; a partial one would poison the
	// cache with data that can still change.
	if b.Final {
		e.Cache.Set(b.Subject, b.Resolution, []models.MBucket{b})
	}

	e.recordLatency(event)

	e.Exchanger.Broadcast(e.View.Frame(models.FrameUpdate))
}

// -----------------------------------------------------------------------------

func (e *Engine) recordLatency(event models.MStreamEvent) {
	if event.OriginTimestampMs == 0 || event.ReceivedAtMs == 0 {
		return
	}

	latency := event.ReceivedAtMs - event.OriginTimestampMs

	e.mu.Lock()
	defer e.mu.Unlock()

	if latency < 0 {
		// Origin clock ahead of ours: flag it, keep it out of the average.
		e.skews++
		return
	}
	e.samples++
	e.totalLatencyMs += latency
}

// -----------------------------------------------------------------------------

// LatencyStats returns aggregate push-event latency observability.
func (e *Engine) LatencyStats() models.MLatencyStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := models.MLatencyStats{
		Samples:    e.samples,
		ClockSkews: e.skews,
	}
	if e.samples > 0 {
		stats.AvgLatencyMs = float64(e.totalLatencyMs) / float64(e.samples)
	}
	return stats
}
