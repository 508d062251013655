package models

// -----------------------------------------------------------------------------
// Instrumentation records
// -----------------------------------------------------------------------------

// MSwitchMetric records one effective subject/resolution switch.
type MSwitchMetric struct {
	Subject    string `json:"subject"`
	Resolution string `json:"resolution"`
	DurationMs int64  `json:"duration_ms"`
	CacheHit   bool   `json:"cache_hit"`
}

// -----------------------------------------------------------------------------

// MSwitchStats aggregates switch metrics for the stats endpoint.
type MSwitchStats struct {
	Switches      int64   `json:"switches"`
	CacheHits     int64   `json:"cache_hits"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// -----------------------------------------------------------------------------

// MLatencyStats aggregates push-event latency. Events whose origin timestamp
// lies in the future (negative latency) count as clock skew and are excluded
// from the average.
type MLatencyStats struct {
	Samples      int64   `json:"samples"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	ClockSkews   int64   `json:"clock_skews"`
}
