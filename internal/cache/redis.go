package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"supernode-rewards/internal/config"
)

// Redis implements Cache over a go-redis client.
type Redis struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedis connects a Redis cache from runtime settings.
func NewRedis(cfg config.RedisConfig, logger zerolog.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

var _ Cache = (*Redis)(nil)

// Get fetches a cached value. The second return reports presence.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value with the given TTL. A zero TTL means no expiry.
func (r *Redis) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern removes every key under the given prefix and returns the
// number of deleted keys. Deletion walks the keyspace with SCAN so large
// namespaces do not block the server.
func (r *Redis) DeleteByPattern(ctx context.Context, prefix string) (int, error) {
	pattern := prefix + "*"
	deleted := 0

	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache scan %s: %w", pattern, err)
	}

	r.logger.Debug().Str("prefix", prefix).Int("deleted", deleted).Msg("cache namespace cleared")
	return deleted, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
