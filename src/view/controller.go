package view

import (
	"context"
	"sync"
	"time"

	"sentiment-observer/src/config"
	"sentiment-observer/src/interfaces"
	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
	"sentiment-observer/src/resolution"
	"sentiment-observer/src/utils"
)

// -----------------------------------------------------------------------------
// Switch Controller
// -----------------------------------------------------------------------------

// ControllerState is the switch state machine position.
type ControllerState int

const (
	StateIdle ControllerState = iota
	StateDebouncing
	StateFetching
	StateRendered
)

// -----------------------------------------------------------------------------

// SwitchController coordinates subject/resolution changes: debounce,
// cache-first read, network fallback, render, stream resubscribe.
type SwitchController struct {
	Config    *models.MConfig
	Registry  *resolution.Registry
	Cache     interfaces.IBucketCache
	Source    interfaces.IBucketSource
	Stream    interfaces.IStreamSource
	Exchanger interfaces.IDataExchanger
	View      *ViewState
	Logger    *logger.Logger

	debouncer *utils.Debouncer

	mu          sync.Mutex
	state       ControllerState
	switchCount int64
	hitCount    int64
	totalMs     int64
	recent      []models.MSwitchMetric
}

// -----------------------------------------------------------------------------

const recentMetricsCap = 50

func NewSwitchController(
	cfg *models.MConfig,
	reg *resolution.Registry,
	cache interfaces.IBucketCache,
	source interfaces.IBucketSource,
	stream interfaces.IStreamSource,
	exchanger interfaces.IDataExchanger,
	state *ViewState,
	log *logger.Logger,
) *SwitchController {
	return &SwitchController{
		Config:    cfg,
		Registry:  reg,
		Cache:     cache,
		Source:    source,
		Stream:    stream,
		Exchanger: exchanger,
		View:      state,
		Logger:    log,
		debouncer: utils.NewDebouncer(time.Duration(cfg.View.DebounceMs) * time.Millisecond),
	}
}

// -----------------------------------------------------------------------------

// RequestSwitch debounces a subject/resolution change. Requests arriving
// inside the window cancel the pending one, so rapid clicking collapses
// into a single effective switch.
func (c *SwitchController) RequestSwitch(subject, res string) {
	c.setState(StateDebouncing)
	c.debouncer.Schedule(func() {
		c.performSwitch(subject, res)
	})
}

// -----------------------------------------------------------------------------

// performSwitch runs after the debounce window: cache first, network on
// miss, one attempt only, then stream resubscribe.
func (c *SwitchController) performSwitch(subject, res string) {
	started := time.Now()

	// Unknown resolution is a configuration defect: loud, no default.
	if _, err := c.Registry.ByKey(res); err != nil {
		c.Logger.Error("Switch rejected: %v", err)
		c.setState(StateIdle)
		return
	}

	c.View.SetView(subject, res)
	c.persistPreference(subject, res)

	c.setState(StateFetching)

	buckets := c.Cache.Get(subject, res, 0, 0)
	cacheHit := buckets != nil

	if cacheHit {
		c.View.SetSeries(buckets)
		c.Exchanger.Broadcast(c.View.Frame(models.FrameInitial))
	} else {
		c.Exchanger.Broadcast(c.View.Frame(models.FrameLoading))

		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(c.Config.Query.RequestTimeout)*time.Second)
		fetched, err := c.Source.FetchSeries(ctx, subject, res, 0, 0)
		cancel()

		if err != nil {
			// One attempt per user-triggered switch: blank the series and move on.
			c.Logger.Error("Fetch failed for %s/%s: %v", subject, res, err)
			c.View.SetSeries(nil)
			c.Exchanger.Broadcast(c.View.Frame(models.FrameInitial))
		} else {
			c.View.SetSeries(fetched)
			c.Exchanger.Broadcast(c.View.Frame(models.FrameInitial))
			c.Cache.Set(subject, res, fetched)
		}
	}

	c.record(models.MSwitchMetric{
		Subject:    subject,
		Resolution: res,
		DurationMs: time.Since(started).Milliseconds(),
		CacheHit:   cacheHit,
	})

	// Old subscription is torn down before the new one opens, so no
	// stale-filter events arrive after the switch.
	if err := c.Stream.Subscribe([]string{subject}, res); err != nil {
		c.Logger.Warning("Stream resubscribe failed: %v", err)
	}

	c.setState(StateRendered)
}

// -----------------------------------------------------------------------------

func (c *SwitchController) persistPreference(subject, res string) {
	path := c.Config.View.PreferencesPath
	prefs := models.MPreferences{Subject: subject, Resolution: res}
	if err := config.SavePreferences(path, prefs); err != nil {
		c.Logger.Warning("Failed to persist view preference: %v", err)
	}
}

// -----------------------------------------------------------------------------

func (c *SwitchController) setState(s ControllerState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the current state machine position.
func (c *SwitchController) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// -----------------------------------------------------------------------------

func (c *SwitchController) record(m models.MSwitchMetric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.switchCount++
	c.totalMs += m.DurationMs
	if m.CacheHit {
		c.hitCount++
	}

	c.recent = append(c.recent, m)
	if len(c.recent) > recentMetricsCap {
		c.recent = c.recent[len(c.recent)-recentMetricsCap:]
	}
}

// -----------------------------------------------------------------------------

// Metrics returns aggregate switch instrumentation.
func (c *SwitchController) Metrics() models.MSwitchStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := models.MSwitchStats{
		Switches:  c.switchCount,
		CacheHits: c.hitCount,
	}
	if c.switchCount > 0 {
		stats.AvgDurationMs = float64(c.totalMs) / float64(c.switchCount)
	}
	return stats
}

// -----------------------------------------------------------------------------

// RecentMetrics returns the most recent per-switch records.
func (c *SwitchController) RecentMetrics() []models.MSwitchMetric {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.MSwitchMetric, len(c.recent))
	copy(out, c.recent)
	return out
}
