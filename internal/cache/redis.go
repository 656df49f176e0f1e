package cache

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"pagesentry/internal/common"
)

const redisKeyPrefix = "ps:cache:"

// RedisCache keeps reputation payloads in Redis so they survive restarts and
// can be shared between instances. Expiry is delegated to Redis TTLs. Any
// Redis failure degrades to a cache miss rather than failing the assessment.
type RedisCache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisCache wraps an existing Redis client. Pass nil for logger to
// disable logging.
func NewRedisCache(rdb *redis.Client, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RedisCache{rdb: rdb, logger: logger}
}

func redisKey(source common.SourceID, key string) string {
	return redisKeyPrefix + string(source) + ":" + key
}

func (c *RedisCache) Get(ctx context.Context, source common.SourceID, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, redisKey(source, key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", "source", source, "error", err)
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, source common.SourceID, key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.rdb.Set(ctx, redisKey(source, key), data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "source", source, "error", err)
	}
}

func (c *RedisCache) Clear(ctx context.Context, sources ...common.SourceID) {
	patterns := []string{redisKeyPrefix + "*"}
	if len(sources) > 0 {
		patterns = patterns[:0]
		for _, src := range sources {
			patterns = append(patterns, redisKeyPrefix+string(src)+":*")
		}
	}
	for _, pattern := range patterns {
		iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			c.rdb.Del(ctx, iter.Val())
		}
		if err := iter.Err(); err != nil {
			c.logger.Warn("cache clear failed", "pattern", pattern, "error", err)
		}
	}
}
