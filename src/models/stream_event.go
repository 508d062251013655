package models

// -----------------------------------------------------------------------------
// Push stream events (tagged union over one channel)
// -----------------------------------------------------------------------------

type StreamEventType string

const (
	StreamEventPartial StreamEventType = "partial_bucket"
	StreamEventFinal   StreamEventType = "bucket_update"
	StreamEventError   StreamEventType = "stream_error"
)

// MStreamEvent is the single message type the merge engine consumes.
// Bucket is set for partial/final events, Err for stream errors.
// OriginTimestampMs is the server-side emit time when the payload carries
// one (0 = absent); ReceivedAtMs is stamped by the transport on arrival.
type MStreamEvent struct {
	Type              StreamEventType `json:"type"`
	Bucket            MBucket         `json:"bucket"`
	OriginTimestampMs int64           `json:"origin_timestamp_ms,omitempty"`
	ReceivedAtMs      int64           `json:"-"`
	Err               error           `json:"-"`
}

// -----------------------------------------------------------------------------
// Subscription filter command sent over the push connection
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string   `json:"command"`
	Subjects   []string `json:"subjects"`
	Resolution string   `json:"resolution"`
}
