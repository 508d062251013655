package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
	"sentiment-observer/src/resolution"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresCache implements the durable cache on Postgres, namespaced under
// its own schema so several observer instances can share one database.
type PostgresCache struct {
	Config   *models.MConfig
	DB       *sql.DB
	Schema   string
	Registry *resolution.Registry
	Logger   *logger.Logger

	Now func() time.Time

	counters cacheCounters
}

// -----------------------------------------------------------------------------

func NewPostgresCache(cfg *models.MConfig, reg *resolution.Registry, log *logger.Logger) (*PostgresCache, error) {
	// Schema name derived from the application name
	schema := strings.ToLower(strings.ReplaceAll(cfg.Name, "-", "_"))
	if schema == "" {
		schema = "sentiment_observer"
	}

	return &PostgresCache{
		Config:   cfg,
		Schema:   schema,
		Registry: reg,
		Logger:   log,
		Now:      time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

func (c *PostgresCache) Initialize() error {
	if c.DB == nil {
		db, err := sql.Open("postgres", c.Config.Storage.DBConnectionString)
		if err != nil {
			return err
		}
		if err := db.Ping(); err != nil {
			return err
		}
		c.DB = db
	}

	if _, err := c.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, c.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", c.Schema, err)
	}

	if err := c.migrate(); err != nil {
		return err
	}

	c.Logger.Info("PostgresCache initialized (Schema: %s)", c.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (c *PostgresCache) migrate() error {
	metaTable := fmt.Sprintf(`"%s"."cache_meta"`, c.Schema)
	cacheTable := fmt.Sprintf(`"%s"."bucket_cache"`, c.Schema)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT
		);
	`, metaTable)
	if _, err := c.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create cache_meta: %w", err)
	}

	var stored string
	err := c.DB.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE key = 'schema_version'", metaTable)).Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if stored != SchemaVersion {
		if stored != "" {
			c.Logger.Warning("Cache schema version changed (%s -> %s), wiping cache", stored, SchemaVersion)
		}
		if _, err := c.DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", cacheTable)); err != nil {
			return fmt.Errorf("failed to drop bucket_cache: %w", err)
		}
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			subject TEXT,
			resolution TEXT,
			bucket_ts BIGINT,
			payload TEXT,
			cached_at BIGINT,
			expires_at BIGINT,
			PRIMARY KEY (subject, resolution, bucket_ts)
		);
	`, cacheTable)
	if _, err := c.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create bucket_cache: %w", err)
	}

	query = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_bucket_cache_expiry ON %s (expires_at)`, cacheTable)
	if _, err := c.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create expiry index: %w", err)
	}

	query = fmt.Sprintf(`
		INSERT INTO %s (key, value) VALUES ('schema_version', $1)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, metaTable)
	if _, err := c.DB.Exec(query, SchemaVersion); err != nil {
		return fmt.Errorf("failed to store schema version: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (c *PostgresCache) Get(subject, res string, startTime, endTime int64) []models.MBucket {
	nowMs := c.Now().UnixMilli()

	query := fmt.Sprintf(`
		SELECT payload FROM "%s"."bucket_cache"
		WHERE subject = $1 AND resolution = $2 AND expires_at > $3
		ORDER BY bucket_ts ASC
	`, c.Schema)

	rows, err := c.DB.Query(query, subject, res, nowMs)
	if err != nil {
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

func (c *PostgresCache) Set(subject, res string, buckets []models.MBucket) models.MCacheWriteResult {
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

	query := fmt.Sprintf(`
		INSERT INTO "%s"."bucket_cache" (subject, resolution, bucket_ts, payload, cached_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject, resolution, bucket_ts) DO UPDATE SET
			payload = EXCLUDED.payload,
			cached_at = EXCLUDED.cached_at,
			expires_at = EXCLUDED.expires_at
	`, c.Schema)

	stmt, err := c.DB.Prepare(query)
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

func (c *PostgresCache) Cleanup() int {
	nowMs := c.Now().UnixMilli()

	query := fmt.Sprintf(`DELETE FROM "%s"."bucket_cache" WHERE expires_at <= $1`, c.Schema)
	res, err := c.DB.Exec(query, nowMs)
	if err != nil {
		c.Logger.Error("Cache cleanup failed: %v", err)
		return 0
	}

	removed, _ := res.RowsAffected()
	return int(removed)
}

// -----------------------------------------------------------------------------

func (c *PostgresCache) Clear() error {
	query := fmt.Sprintf(`DELETE FROM "%s"."bucket_cache"`, c.Schema)
	if _, err := c.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	c.counters.reset()
	return nil
}

// -----------------------------------------------------------------------------

func (c *PostgresCache) Stats() models.MCacheStats {
	return c.counters.snapshot()
}

// -----------------------------------------------------------------------------

func (c *PostgresCache) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
