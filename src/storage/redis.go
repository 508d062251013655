package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
	"sentiment-observer/src/resolution"

	"github.com/redis/go-redis/v9"
)

// -----------------------------------------------------------------------------

// RedisCache implements the durable cache on Redis: one sorted set per
// (subject, resolution) scored by bucket timestamp. Entry expiry is carried
// inside the member payload because each entry gets its own TTL, which Redis
// key-level expiry cannot express.
type RedisCache struct {
	Config   *models.MConfig
	Client   *redis.Client
	Registry *resolution.Registry
	Logger   *logger.Logger

	Now func() time.Time

	ctx      context.Context
	counters cacheCounters
}

// redisEntry is the stored member shape.
type redisEntry struct {
	Bucket    models.MBucket `json:"bucket"`
	CachedAt  int64          `json:"cached_at"`
	ExpiresAt int64          `json:"expires_at"`
}

// -----------------------------------------------------------------------------

func NewRedisCache(cfg *models.MConfig, reg *resolution.Registry, log *logger.Logger) (*RedisCache, error) {
	return &RedisCache{
		Config:   cfg,
		Registry: reg,
		Logger:   log,
		Now:      time.Now,
		ctx:      context.Background(),
	}, nil
}

// -----------------------------------------------------------------------------

func bucketKey(subject, res string) string {
	return fmt.Sprintf("buckets:%s:%s", subject, res)
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Initialize() error {
	if c.Client == nil {
		c.Client = redis.NewClient(&redis.Options{
			Addr:     c.Config.Storage.RedisAddr,
			Password: c.Config.Storage.RedisPassword,
			DB:       c.Config.Storage.RedisDB,
		})
	}

	if err := c.Client.Ping(c.ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	stored, err := c.Client.Get(c.ctx, "cache:schema_version").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if stored != SchemaVersion {
		if stored != "" {
			c.Logger.Warning("Cache schema version changed (%s -> %s), wiping cache", stored, SchemaVersion)
		}
		if err := c.deleteAllBucketKeys(); err != nil {
			return err
		}
	}

	return c.Client.Set(c.ctx, "cache:schema_version", SchemaVersion, 0).Err()
}

// -----------------------------------------------------------------------------

func (c *RedisCache) deleteAllBucketKeys() error {
	iter := c.Client.Scan(c.ctx, 0, "buckets:*", 0).Iterator()
	for iter.Next(c.ctx) {
		if err := c.Client.Del(c.ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Get(subject, res string, startTime, endTime int64) []models.MBucket {
	min, max := "-inf", "+inf"
	if startTime > 0 {
		min = strconv.FormatInt(startTime, 10)
	}
	if endTime > 0 {
		max = strconv.FormatInt(endTime, 10)
	}

	members, err := c.Client.ZRangeByScore(c.ctx, bucketKey(subject, res), &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		c.Logger.Error("Cache read failed for %s/%s: %v", subject, res, err)
		c.counters.miss()
		return nil
	}

	nowMs := c.Now().UnixMilli()

	var buckets []models.MBucket
	for _, m := range members {
		var e redisEntry
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			c.Logger.Error("Cache payload decode failed: %v", err)
			continue
		}
		if e.ExpiresAt <= nowMs {
			continue
		}
		buckets = append(buckets, e.Bucket)
	}

	if len(buckets) == 0 {
		c.counters.miss()
		return nil
	}
	c.counters.hit()
	return buckets
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Set(subject, res string, buckets []models.MBucket) models.MCacheWriteResult {
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
	key := bucketKey(subject, res)

	for _, b := range buckets {
		e := redisEntry{Bucket: b, CachedAt: nowMs, ExpiresAt: nowMs + r.CacheTTLMs}
		payload, err := json.Marshal(e)
		if err != nil {
			result.Errors++
			continue
		}

		score := strconv.FormatInt(b.BucketTimestamp, 10)

		// Keyed overwrite: drop any member at this timestamp before adding,
		// so one (subject, resolution, bucket_ts) maps to one member.
		if err := c.Client.ZRemRangeByScore(c.ctx, key, score, score).Err(); err != nil {
			c.Logger.Error("Cache overwrite failed for %s@%d: %v", key, b.BucketTimestamp, err)
			result.Errors++
			continue
		}
		z := redis.Z{Score: float64(b.BucketTimestamp), Member: string(payload)}
		if err := c.Client.ZAdd(c.ctx, key, z).Err(); err != nil {
			c.Logger.Error("Cache upsert failed for %s@%d: %v", key, b.BucketTimestamp, err)
			result.Errors++
			continue
		}
		result.Stored++
	}

	return result
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Cleanup() int {
	nowMs := c.Now().UnixMilli()
	removed := 0

	iter := c.Client.Scan(c.ctx, 0, "buckets:*", 0).Iterator()
	for iter.Next(c.ctx) {
		key := iter.Val()
		members, err := c.Client.ZRange(c.ctx, key, 0, -1).Result()
		if err != nil {
			c.Logger.Error("Cache cleanup scan failed for %s: %v", key, err)
			continue
		}
		for _, m := range members {
			var e redisEntry
			if err := json.Unmarshal([]byte(m), &e); err != nil {
				continue
			}
			if e.ExpiresAt <= nowMs {
				if err := c.Client.ZRem(c.ctx, key, m).Err(); err == nil {
					removed++
				}
			}
		}
	}
	if err := iter.Err(); err != nil {
		c.Logger.Error("Cache cleanup failed: %v", err)
	}

	return removed
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Clear() error {
	if err := c.deleteAllBucketKeys(); err != nil {
		return err
	}
	c.counters.reset()
	return nil
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Stats() models.MCacheStats {
	return c.counters.snapshot()
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
