package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache stores entries in Redis using native key expiry. ExpiresAt is
// still checked on read so a lagging server TTL never serves a stale entry.
type RedisCache struct {
	client *redis.Client
	logger zerolog.Logger
	now    Clock
}

// NewRedisCache creates and connects a new RedisCache.
// It pings the Redis server to ensure connectivity before returning.
func NewRedisCache(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("connected to redis")

	return &RedisCache{
		client: rdb,
		logger: logger.With().Str("component", "redis_cache").Logger(),
		now:    time.Now,
	}, nil
}

// WithClock returns the cache with its clock replaced
func (c *RedisCache) WithClock(now Clock) *RedisCache {
	c.now = now
	return c
}

// Read implements Reader. Redis errors other than a missing key are logged
// and reported as a miss.
func (c *RedisCache) Read(ctx context.Context, key string) (*Entry, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error().Err(err).Str("key", key).Msg("redis read failed")
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("failed to unmarshal cached entry")
		return nil, false
	}

	if entry.Expired(c.now()) {
		return nil, false
	}
	return &entry, true
}

// Write implements Writer
func (c *RedisCache) Write(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if err := stamp(entry, c.now(), ttl); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	c.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("stored entry in redis")
	return nil
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
