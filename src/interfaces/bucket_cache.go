package interfaces

import "sentiment-observer/src/models"

// -----------------------------------------------------------------------------
// IBucketCache defines the contract for the durable bucket cache.
//
// All operations degrade instead of failing: a broken underlying store makes
// Get return a miss and Set report errors, so callers fall back to
// network-only operation without crashing the view.
// -----------------------------------------------------------------------------

type IBucketCache interface {

	// -----------------------------------------------------------------------------

	// Initialize opens the store and wipes it when the schema version marker
	// differs from the current code's version. Idempotent.
	Initialize() error

	// -----------------------------------------------------------------------------

	// Get returns all unexpired buckets for (subject, resolution), optionally
	// restricted to [startTime, endTime] by bucket timestamp (0 = unbounded),
	// ascending. nil means cache miss ("nothing usable found locally", never
	// "zero real data exists").
	Get(subject, resolution string, startTime, endTime int64) []models.MBucket

	// -----------------------------------------------------------------------------

	// Set upserts every bucket keyed by (subject, resolution, bucket timestamp)
	// with a freshly computed expiry. Empty input is a no-op.
	Set(subject, resolution string, buckets []models.MBucket) models.MCacheWriteResult

	// -----------------------------------------------------------------------------

	// Cleanup removes every expired entry across all subjects/resolutions and
	// returns how many were removed.
	Cleanup() int

	// -----------------------------------------------------------------------------

	// Clear wipes everything unconditionally and resets the hit/miss counters.
	Clear() error

	// -----------------------------------------------------------------------------

	// Stats returns cumulative read counters.
	Stats() models.MCacheStats

	// -----------------------------------------------------------------------------

	// Close the underlying store
	Close() error
}
