package interfaces

import (
	"context"

	"sentiment-observer/src/models"
)

// -----------------------------------------------------------------------------
// IBucketSource is the network fetch collaborator: the server-side query
// endpoint that computes buckets. Aggregation itself is out of scope here;
// only the shape of its output matters.
// -----------------------------------------------------------------------------

type IBucketSource interface {

	// -----------------------------------------------------------------------------

	// FetchSeries retrieves one subject's series at the given resolution.
	// startTime/endTime bound the window by bucket timestamp (0 = source default).
	FetchSeries(ctx context.Context, subject, resolution string, startTime, endTime int64) ([]models.MBucket, error)

	// -----------------------------------------------------------------------------

	// FetchBatch retrieves several subjects in one round trip.
	FetchBatch(ctx context.Context, subjects []string, resolution string) (map[string][]models.MBucket, error)
}
