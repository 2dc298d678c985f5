// Package cache wraps Redis as an optional read-through cache keyed by
// normalized query text. The cache is purely an optimization: every
// failure is logged and degrades to a miss, never to a request error.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"book-rag/internal/config"
)

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis. A failed ping is logged but not fatal; the
// returned cache simply behaves as always-miss until Redis comes back.
func New(redisConfig *config.RedisConfig) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	ttl := time.Duration(redisConfig.TTL) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", redisConfig.Addr).Msg("Redis unavailable, caching disabled until it recovers")
	} else {
		log.Info().Str("addr", redisConfig.Addr).Msg("Connected to redis")
	}

	return &Cache{rdb: rdb, ttl: ttl}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the cached JSON string for key, reporting whether it was
// found. Unavailability reads as a miss.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, normalizeKey(key)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache get failed, treating as miss")
		return "", false
	}
	return val, true
}

// Set stores a JSON string under the normalized key with the default TTL.
func (c *Cache) Set(ctx context.Context, key, value string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, normalizeKey(key), value, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache set failed, skipping")
	}
}

func (c *Cache) Delete(ctx context.Context, key string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, normalizeKey(key)).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache delete failed, skipping")
	}
}

// Healthy reports whether Redis answers a ping.
func (c *Cache) Healthy(ctx context.Context) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	return c.rdb.Ping(ctx).Err() == nil
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
