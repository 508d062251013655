package view

import (
	"testing"

	"sentiment-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func bucketAt(ts int64, avg float64) models.MBucket {
	return models.MBucket{
		Subject:         "AAPL",
		Resolution:      "1h",
		BucketTimestamp: ts,
		Avg:             avg,
	}
}

// -----------------------------------------------------------------------------

func TestViewStateSetViewClearsSeries(t *testing.T) {
	v := NewViewState(100)
	v.SetView("AAPL", "1h")
	v.SetSeries([]models.MBucket{bucketAt(3600, 0.1)})

	v.SetView("AAPL", "1d")

	assert.True(t, v.Matches("AAPL", "1d"))
	assert.False(t, v.Matches("AAPL", "1h"))
	assert.Empty(t, v.Series())
}

// -----------------------------------------------------------------------------

func TestViewStateSetSeriesSorts(t *testing.T) {
	v := NewViewState(100)
	v.SetSeries([]models.MBucket{
		bucketAt(7200, 0.2),
		bucketAt(3600, 0.1),
		bucketAt(10800, 0.3),
	})

	series := v.Series()
	require.Len(t, series, 3)
	assert.Equal(t, int64(3600), series[0].BucketTimestamp)
	assert.Equal(t, int64(7200), series[1].BucketTimestamp)
	assert.Equal(t, int64(10800), series[2].BucketTimestamp)
}

// -----------------------------------------------------------------------------

func TestViewStateMergeInsertsInOrder(t *testing.T) {
	v := NewViewState(100)
	v.SetSeries([]models.MBucket{bucketAt(3600, 0.1), bucketAt(10800, 0.3)})

	v.Merge(bucketAt(7200, 0.2))

	series := v.Series()
	require.Len(t, series, 3)
	assert.Equal(t, int64(7200), series[1].BucketTimestamp)
}

// -----------------------------------------------------------------------------

func TestViewStateMergeReplacesSameTimestamp(t *testing.T) {
	v := NewViewState(100)
	v.SetSeries([]models.MBucket{bucketAt(3600, 0.1)})

	v.Merge(bucketAt(3600, 0.9))
	v.Merge(bucketAt(3600, 0.9)) // idempotent

	series := v.Series()
	require.Len(t, series, 1)
	assert.Equal(t, 0.9, series[0].Avg)
}

// -----------------------------------------------------------------------------

func TestViewStateTrimsOldestBeyondCap(t *testing.T) {
	v := NewViewState(3)
	for ts := int64(1); ts <= 5; ts++ {
		v.Merge(bucketAt(ts*3600, 0.1))
	}

	series := v.Series()
	require.Len(t, series, 3)
	assert.Equal(t, int64(3*3600), series[0].BucketTimestamp)
	assert.Equal(t, int64(5*3600), series[2].BucketTimestamp)
}

// -----------------------------------------------------------------------------

func TestViewStateFrame(t *testing.T) {
	v := NewViewState(100)
	v.SetView("AAPL", "1h")
	v.SetSeries([]models.MBucket{bucketAt(3600, 0.1)})

	frame := v.Frame(models.FrameInitial)
	require.NotNil(t, frame)
	assert.Equal(t, models.FrameInitial, frame.Type)
	assert.Equal(t, "AAPL", frame.Subject)
	assert.Equal(t, "1h", frame.Resolution)
	require.Len(t, frame.Points, 1)
	assert.Equal(t, int64(3600), frame.Points[0].Timestamp)
	assert.Equal(t, 0.1, frame.Points[0].Value)
}
