package models

import "time"

// MResolution describes one supported bucket duration and how long its
// cached entries stay fresh. Coarser resolutions carry longer TTLs because
// they change less often and cost more to recompute.
type MResolution struct {
	Key             string `json:"key" yaml:"key"` // e.g., "5m"
	DurationSeconds int64  `json:"duration_seconds" yaml:"duration_seconds"`
	CacheTTLMs      int64  `json:"cache_ttl_ms" yaml:"cache_ttl_ms"`
}

// -----------------------------------------------------------------------------

func (r MResolution) Duration() time.Duration {
	return time.Duration(r.DurationSeconds) * time.Second
}

func (r MResolution) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLMs) * time.Millisecond
}
