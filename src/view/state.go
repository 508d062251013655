package view

import (
	"sort"
	"sync"
	"time"

	"sentiment-observer/src/models"
)

// -----------------------------------------------------------------------------
// ViewState
// -----------------------------------------------------------------------------

// ViewState holds the currently displayed (subject, resolution) and its
// series: ascending by bucket timestamp, at most one entry per timestamp.
// The last element may be a partial bucket; all others are final. Mutated
// only by the switch controller and the merge engine.
type ViewState struct {
	mu         sync.RWMutex
	subject    string
	resolution string
	series     []models.MBucket
	maxPoints  int
}

// -----------------------------------------------------------------------------

func NewViewState(maxPoints int) *ViewState {
	return &ViewState{maxPoints: maxPoints}
}

// -----------------------------------------------------------------------------

// SetView switches the active subject/resolution and drops the old series.
func (v *ViewState) SetView(subject, resolution string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.subject = subject
	v.resolution = resolution
	v.series = nil
}

// -----------------------------------------------------------------------------

// SetSeries replaces the displayed series wholesale (post-fetch render).
func (v *ViewState) SetSeries(buckets []models.MBucket) {
	v.mu.Lock()
	defer v.mu.Unlock()

	series := make([]models.MBucket, len(buckets))
	copy(series, buckets)
	sort.Slice(series, func(i, j int) bool {
		return series[i].BucketTimestamp < series[j].BucketTimestamp
	})
	v.series = v.trim(series)
}

// -----------------------------------------------------------------------------

// Merge applies one bucket with replace-or-insert-by-timestamp semantics:
// an existing entry at the same timestamp is replaced in place, otherwise
// the bucket is inserted keeping ascending order. Idempotent by key.
func (v *ViewState) Merge(b models.MBucket) {
	v.mu.Lock()
	defer v.mu.Unlock()

	idx := sort.Search(len(v.series), func(i int) bool {
		return v.series[i].BucketTimestamp >= b.BucketTimestamp
	})

	if idx < len(v.series) && v.series[idx].BucketTimestamp == b.BucketTimestamp {
		v.series[idx] = b
		return
	}

	v.series = append(v.series, models.MBucket{})
	copy(v.series[idx+1:], v.series[idx:])
	v.series[idx] = b
	v.series = v.trim(v.series)
}

// -----------------------------------------------------------------------------

// trim drops the oldest entries once the display cap is exceeded.
// Caller holds the lock.
func (v *ViewState) trim(series []models.MBucket) []models.MBucket {
	if v.maxPoints > 0 && len(series) > v.maxPoints {
		series = series[len(series)-v.maxPoints:]
	}
	return series
}

// -----------------------------------------------------------------------------

// Matches reports whether an incoming event belongs to the active view.
func (v *ViewState) Matches(subject, resolution string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.subject == subject && v.resolution == resolution
}

// -----------------------------------------------------------------------------

func (v *ViewState) Subject() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.subject
}

func (v *ViewState) Resolution() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.resolution
}

// -----------------------------------------------------------------------------

// Series returns a copy of the displayed series.
func (v *ViewState) Series() []models.MBucket {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]models.MBucket, len(v.series))
	copy(out, v.series)
	return out
}

// -----------------------------------------------------------------------------

// Frame builds a render frame of the given type from the current state.
func (v *ViewState) Frame(frameType string) *models.MRenderFrame {
	v.mu.RLock()
	defer v.mu.RUnlock()

	points := make([]models.MSeriesPoint, 0, len(v.series))
	for _, b := range v.series {
		points = append(points, b.Point())
	}

	return &models.MRenderFrame{
		Type:       frameType,
		Subject:    v.subject,
		Resolution: v.resolution,
		Points:     points,
		Timestamp:  time.Now().Unix(),
	}
}
