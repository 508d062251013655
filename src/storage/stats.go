package storage

import (
	"sync/atomic"

	"sentiment-observer/src/models"
)

// -----------------------------------------------------------------------------

// SchemaVersion is the cache record format marker. Any change to the stored
// shape bumps it; backends wipe all data when the stored marker differs, so
// stale-shape records can never crash a read.
const SchemaVersion = "2"

// -----------------------------------------------------------------------------

// cacheCounters tracks cumulative hit/miss counts for one backend.
type cacheCounters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *cacheCounters) hit()  { c.hits.Add(1) }
func (c *cacheCounters) miss() { c.misses.Add(1) }

func (c *cacheCounters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// -----------------------------------------------------------------------------

func (c *cacheCounters) snapshot() models.MCacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	stats := models.MCacheStats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}
