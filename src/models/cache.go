package models

// -----------------------------------------------------------------------------
// Durable cache result/stat structures
// -----------------------------------------------------------------------------

// MCacheWriteResult reports a bulk upsert. Partial failures keep the rows
// already written; Errors only counts the rows that did not make it.
type MCacheWriteResult struct {
	Stored int `json:"stored"`
	Errors int `json:"errors"`
}

// -----------------------------------------------------------------------------

// MCacheStats holds cumulative read counters for one cache backend.
type MCacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}
