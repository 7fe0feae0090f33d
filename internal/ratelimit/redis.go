package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs limiters with shared Redis state so counts are global
// across instances. Window counting uses INCR + EXPIRE; exhaustion writes a
// separate block key whose TTL is the retry-after.
type RedisStore struct {
	cli *redis.Client
}

// NewRedisStore returns a Store over the given client.
func NewRedisStore(cli *redis.Client) *RedisStore {
	return &RedisStore{cli: cli}
}

// Take consumes one point for key under the named instance.
func (s *RedisStore) Take(ctx context.Context, name, key string, cfg Config, now time.Time) (int, time.Duration, error) {
	blockKey := fmt.Sprintf("rl:block:%s:%s", name, key)
	ttl, err := s.cli.TTL(ctx, blockKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: block ttl: %w", err)
	}
	if ttl > 0 {
		return 0, ttl, nil
	}

	countKey := fmt.Sprintf("rl:%s:%s", name, key)
	n, err := s.cli.Incr(ctx, countKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: incr: %w", err)
	}
	if n == 1 {
		if err := s.cli.Expire(ctx, countKey, cfg.Window).Err(); err != nil {
			return 0, 0, fmt.Errorf("ratelimit: expire: %w", err)
		}
	}
	if n > int64(cfg.Points) {
		if err := s.cli.Set(ctx, blockKey, "1", cfg.BlockDuration).Err(); err != nil {
			return 0, 0, fmt.Errorf("ratelimit: set block: %w", err)
		}
		return 0, cfg.BlockDuration, nil
	}
	return cfg.Points - int(n), 0, nil
}
