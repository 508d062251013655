package align

import (
	"sort"
	"time"

	"sentiment-observer/src/models"
)

// -----------------------------------------------------------------------------
// Alignment Engine
// -----------------------------------------------------------------------------

// DefaultTolerance is the fixed matching window. It deliberately does not
// scale with the overlay resolution; tune it via align.tolerance_seconds.
const DefaultTolerance = time.Hour

// -----------------------------------------------------------------------------

// Align produces one overlay value per primary point: the secondary bucket
// with the smallest absolute timestamp delta within tolerance, ties broken
// toward the earlier secondary timestamp. Out-of-tolerance points yield nil;
// gaps are never interpolated.
func Align(primary []models.MSeriesPoint, secondary []models.MBucket, tolerance time.Duration) []*float64 {
	aligned := make([]*float64, len(primary))
	if len(secondary) == 0 {
		return aligned
	}

	sorted := make([]models.MBucket, len(secondary))
	copy(sorted, secondary)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].BucketTimestamp < sorted[j].BucketTimestamp
	})

	tolSec := int64(tolerance / time.Second)

	for i, p := range primary {
		if b, ok := nearest(sorted, p.Timestamp, tolSec); ok {
			v := b.Avg
			aligned[i] = &v
		}
	}

	return aligned
}

// -----------------------------------------------------------------------------

// nearest finds the secondary bucket closest to ts within tolSec seconds.
// With equal deltas on both sides the earlier bucket wins.
func nearest(sorted []models.MBucket, ts, tolSec int64) (models.MBucket, bool) {
	idx := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].BucketTimestamp >= ts
	})

	// Exact match
	if idx < len(sorted) && sorted[idx].BucketTimestamp == ts {
		return sorted[idx], true
	}

	var best models.MBucket
	bestDelta := int64(-1)

	// Candidate before ts: checked first so it wins ties deterministically.
	if idx > 0 {
		before := sorted[idx-1]
		if d := ts - before.BucketTimestamp; d <= tolSec {
			best = before
			bestDelta = d
		}
	}
	if idx < len(sorted) {
		after := sorted[idx]
		if d := after.BucketTimestamp - ts; d <= tolSec && (bestDelta < 0 || d < bestDelta) {
			best = after
			bestDelta = d
		}
	}

	return best, bestDelta >= 0
}
