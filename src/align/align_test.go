package align

import (
	"testing"
	"time"

	"sentiment-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func points(timestamps ...int64) []models.MSeriesPoint {
	out := make([]models.MSeriesPoint, 0, len(timestamps))
	for _, ts := range timestamps {
		out = append(out, models.MSeriesPoint{Timestamp: ts, Value: 1.0})
	}
	return out
}

func buckets(pairs ...int64) []models.MBucket {
	// pairs come as timestamp, value*1000 to keep literals integral
	out := make([]models.MBucket, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.MBucket{
			BucketTimestamp: pairs[i],
			Avg:             float64(pairs[i+1]) / 1000,
		})
	}
	return out
}

// -----------------------------------------------------------------------------
// Nearest-within-tolerance matching
// -----------------------------------------------------------------------------

func TestAlignNearestWithinTolerance(t *testing.T) {
	// Primary on the hour at 09:00/10:00/11:00, overlay at 09:05 and 10:58.
	const h = int64(3600)
	primary := points(9*h, 10*h, 11*h)
	secondary := buckets(
		9*h+300, 100, // 09:05 -> 0.1
		10*h+3480, 200, // 10:58 -> 0.2
	)

	aligned := Align(primary, secondary, time.Hour)
	require.Len(t, aligned, 3)

	// 09:00 matches 09:05 (5 min away)
	require.NotNil(t, aligned[0])
	assert.Equal(t, 0.1, *aligned[0])

	// 10:00 matches 09:05 (55 min) over 10:58 (58 min)
	require.NotNil(t, aligned[1])
	assert.Equal(t, 0.1, *aligned[1])

	// 11:00 matches 10:58 (2 min)
	require.NotNil(t, aligned[2])
	assert.Equal(t, 0.2, *aligned[2])
}

// -----------------------------------------------------------------------------

func TestAlignOutOfToleranceYieldsNil(t *testing.T) {
	primary := points(0, 100000)
	secondary := buckets(50, 500)

	aligned := Align(primary, secondary, time.Hour)
	require.Len(t, aligned, 2)

	require.NotNil(t, aligned[0])
	assert.Equal(t, 0.5, *aligned[0])

	// 100000s away from the only bucket: far outside the 3600s window,
	// and never interpolated.
	assert.Nil(t, aligned[1])
}

// -----------------------------------------------------------------------------

func TestAlignExactMatchPreferred(t *testing.T) {
	primary := points(1000)
	secondary := buckets(
		999, 100,
		1000, 200,
		1001, 300,
	)

	aligned := Align(primary, secondary, time.Hour)
	require.NotNil(t, aligned[0])
	assert.Equal(t, 0.2, *aligned[0])
}

// -----------------------------------------------------------------------------

func TestAlignTieGoesToEarlierTimestamp(t *testing.T) {
	primary := points(1000)
	secondary := buckets(
		900, 100, // 100s before
		1100, 200, // 100s after
	)

	aligned := Align(primary, secondary, time.Hour)
	require.NotNil(t, aligned[0])
	assert.Equal(t, 0.1, *aligned[0])
}

// -----------------------------------------------------------------------------

func TestAlignEmptyInputs(t *testing.T) {
	assert.Empty(t, Align(nil, buckets(100, 100), time.Hour))

	aligned := Align(points(100, 200), nil, time.Hour)
	require.Len(t, aligned, 2)
	assert.Nil(t, aligned[0])
	assert.Nil(t, aligned[1])
}

// -----------------------------------------------------------------------------

func TestAlignUnsortedSecondary(t *testing.T) {
	primary := points(1000)
	secondary := buckets(
		5000, 100,
		990, 200,
		3000, 300,
	)

	aligned := Align(primary, secondary, time.Hour)
	require.NotNil(t, aligned[0])
	assert.Equal(t, 0.2, *aligned[0])
}
