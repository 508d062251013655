package models

// MBucket represents one aggregated sentiment window for a subject at a
// given resolution. BucketTimestamp is the window start, aligned to the
// resolution boundary (unix seconds).
type MBucket struct {
	Subject         string           `json:"subject"`
	Resolution      string           `json:"resolution"` // e.g., "5m", "1h"
	BucketTimestamp int64            `json:"bucket_timestamp"`
	Count           int64            `json:"count"`
	Sum             float64          `json:"sum"`
	Avg             float64          `json:"avg"`
	High            float64          `json:"high"`
	Low             float64          `json:"low"`
	LabelCounts     map[string]int64 `json:"label_counts,omitempty"`
	Final           bool             `json:"final"`
}

// -----------------------------------------------------------------------------

// MSeriesPoint is the shape the rendering widget consumes.
type MSeriesPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	High      float64 `json:"high,omitempty"`
	Low       float64 `json:"low,omitempty"`
}

// -----------------------------------------------------------------------------

// Point converts a bucket to its render representation.
func (b MBucket) Point() MSeriesPoint {
	return MSeriesPoint{
		Timestamp: b.BucketTimestamp,
		Value:     b.Avg,
		High:      b.High,
		Low:       b.Low,
	}
}
