package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
	"sentiment-observer/src/resolution"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteCache struct {
	Config   *models.MConfig
	DB       *sql.DB
	Registry *resolution.Registry
	Logger   *logger.Logger

	// Now is the clock used for expiry decisions; overridable in tests.
	Now func() time.Time

	counters cacheCounters
}

// -----------------------------------------------------------------------------

func NewSQLiteCache(cfg *models.MConfig, reg *resolution.Registry, log *logger.Logger) (*SQLiteCache, error) {
	return &SQLiteCache{
		Config:   cfg,
		Registry: reg,
		Logger:   log,
		Now:      time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

// Initialize opens the store and brings the schema up. When the stored
// schema-version marker differs from SchemaVersion every record is wiped
// first. Safe to call repeatedly.
func (c *SQLiteCache) Initialize() error {
	if c.DB == nil {
		db, err := sql.Open("sqlite", c.Config.Storage.DBPath)
		if err != nil {
			return err
		}
		if err := db.Ping(); err != nil {
			return err
		}
		c.DB = db

		// PRAGMA optimizations
		if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
			c.Logger.Warning("Failed to set WAL mode: %v", err)
		}
		if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
			c.Logger.Warning("Failed to set synchronous mode: %v", err)
		}
	}

	return c.migrate()
}

// -----------------------------------------------------------------------------

func (c *SQLiteCache) migrate() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	if _, err := c.DB.Exec(`
		CREATE TABLE IF NOT EXISTS cache_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);
	`); err != nil {
		return fmt.Errorf("failed to create cache_meta: %w", err)
	}

	var stored string
	err := c.DB.QueryRow("SELECT value FROM cache_meta WHERE key = 'schema_version'").Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if stored != SchemaVersion {
		if stored != "" {
			c.Logger.Warning("Cache schema version changed (%s -> %s), wiping cache", stored, SchemaVersion)
		}
		if _, err := c.DB.Exec("DROP TABLE IF EXISTS bucket_cache"); err != nil {
			return fmt.Errorf("failed to drop bucket_cache: %w", err)
		}
	}

	query := `
		CREATE TABLE IF NOT EXISTS bucket_cache (
			subject TEXT,
			resolution TEXT,
			bucket_ts INTEGER,
			payload TEXT,
			cached_at INTEGER,
			expires_at INTEGER,
			PRIMARY KEY (subject, resolution, bucket_ts)
		);
	`
	if _, err := c.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create bucket_cache: %w", err)
	}
	if _, err := c.DB.Exec("CREATE INDEX IF NOT EXISTS idx_bucket_cache_expiry ON bucket_cache (expires_at)"); err != nil {
		return fmt.Errorf("failed to create expiry index: %w", err)
	}

	if _, err := c.DB.Exec(`
		INSERT INTO cache_meta (key, value) VALUES ('schema_version', ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, SchemaVersion); err != nil {
		return fmt.Errorf("failed to store schema version: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Get scans all entries for (subject, resolution), drops expired ones and
// applies the optional [startTime, endTime] bucket-timestamp filter.
// nil means miss; a miss only says "nothing usable found locally".
func (c *SQLiteCache) Get(subject, res string, startTime, endTime int64) []models.MBucket {
	nowMs := c.Now().UnixMilli()

	rows, err := c.DB.Query(`
		SELECT payload FROM bucket_cache
		WHERE subject = ? AND resolution = ? AND expires_at > ?
		ORDER BY bucket_ts ASC
	`, subject, res, nowMs)
	if err != nil {
		// Degrade to miss so callers fall back to the network
		c.Logger.Error("Cache read failed for %s/%s: %v", subject, res, err)
		c.counters.miss()
		return nil
	}
	defer rows.Close()

	var buckets []models.MBucket
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			c.Logger.Error("Cache row scan failed: %v", err)
			continue
		}
		var b models.MBucket
		if err := json.Unmarshal([]byte(payload), &b); err != nil {
			c.Logger.Error("Cache payload decode failed: %v", err)
			continue
		}
		if startTime > 0 && b.BucketTimestamp < startTime {
			continue
		}
		if endTime > 0 && b.BucketTimestamp > endTime {
			continue
		}
		buckets = append(buckets, b)
	}

	if len(buckets) == 0 {
		c.counters.miss()
		return nil
	}
	c.counters.hit()
	return buckets
}

// -----------------------------------------------------------------------------

// Set upserts every bucket with a fresh expiry. Rows are written one by one
// so a mid-batch failure never loses the entries already stored.
func (c *SQLiteCache) Set(subject, res string, buckets []models.MBucket) models.MCacheWriteResult {
	var result models.MCacheWriteResult
	if len(buckets) == 0 {
		return result
	}

	r, err := c.Registry.ByKey(res)
	if err != nil {
		c.Logger.Error("Cache write rejected: %v", err)
		result.Errors = len(buckets)
		return result
	}

	nowMs := c.Now().UnixMilli()
	expiresAt := nowMs + r.CacheTTLMs

	stmt, err := c.DB.Prepare(`
		INSERT INTO bucket_cache (subject, resolution, bucket_ts, payload, cached_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject, resolution, bucket_ts) DO UPDATE SET
			payload = excluded.payload,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at
	`)
	if err != nil {
		c.Logger.Error("Cache write failed for %s/%s: %v", subject, res, err)
		result.Errors = len(buckets)
		return result
	}
	defer stmt.Close()

	for _, b := range buckets {
		payload, err := json.Marshal(b)
		if err != nil {
			result.Errors++
			continue
		}
		if _, err := stmt.Exec(subject, res, b.BucketTimestamp, string(payload), nowMs, expiresAt); err != nil {
			c.Logger.Error("Cache upsert failed for %s/%s@%d: %v", subject, res, b.BucketTimestamp, err)
			result.Errors++
			continue
		}
		result.Stored++
	}

	return result
}

// -----------------------------------------------------------------------------

// Cleanup removes every expired entry across all subjects and resolutions.
func (c *SQLiteCache) Cleanup() int {
	nowMs := c.Now().UnixMilli()

	res, err := c.DB.Exec("DELETE FROM bucket_cache WHERE expires_at <= ?", nowMs)
	if err != nil {
		c.Logger.Error("Cache cleanup failed: %v", err)
		return 0
	}

	removed, _ := res.RowsAffected()
	if removed > 0 {
		c.Logger.Debug("Cache cleanup removed %d expired entries", removed)
	}
	return int(removed)
}

// -----------------------------------------------------------------------------

// Clear wipes everything and resets the counters.
func (c *SQLiteCache) Clear() error {
	if _, err := c.DB.Exec("DELETE FROM bucket_cache"); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	c.counters.reset()
	return nil
}

// -----------------------------------------------------------------------------

func (c *SQLiteCache) Stats() models.MCacheStats {
	return c.counters.snapshot()
}

// -----------------------------------------------------------------------------

func (c *SQLiteCache) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
