package interfaces

import "sentiment-observer/src/models"

// -----------------------------------------------------------------------------
// IStreamSource is the push-stream collaborator. One subscription maps to
// exactly one upstream connection; changing the filter recreates it.
// -----------------------------------------------------------------------------

type IStreamSource interface {

	// -----------------------------------------------------------------------------

	// Subscribe closes any existing connection synchronously, then opens a new
	// one filtered to (subjects, resolution).
	Subscribe(subjects []string, resolution string) error

	// -----------------------------------------------------------------------------

	// Events is the single channel all stream events arrive on: partial and
	// final buckets plus transport errors, in arrival order.
	Events() <-chan models.MStreamEvent

	// -----------------------------------------------------------------------------

	// Close tears the subscription down and closes the events channel.
	Close() error
}
