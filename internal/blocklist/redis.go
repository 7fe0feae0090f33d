package blocklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares blocklist state across instances. Redis key TTLs replace
// both lazy expiry and the sweep.
type RedisStore struct {
	cli *redis.Client
}

// NewRedisStore returns a Store over the given client.
func NewRedisStore(cli *redis.Client) *RedisStore {
	return &RedisStore{cli: cli}
}

func blockKey(ip string) string   { return "ipblock:" + ip }
func counterKey(ip string) string { return "ipsusp:" + ip }

// GetBlock returns the active block for ip. Expiry is native: a missing key
// means no block.
func (s *RedisStore) GetBlock(ctx context.Context, ip string, now time.Time) (string, time.Time, bool, error) {
	pipe := s.cli.Pipeline()
	getCmd := pipe.Get(ctx, blockKey(ip))
	ttlCmd := pipe.TTL(ctx, blockKey(ip))
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, err
	}
	ttl := ttlCmd.Val()
	if ttl <= 0 {
		return "", time.Time{}, false, nil
	}
	return getCmd.Val(), now.Add(ttl), true, nil
}

// PutBlock inserts or overwrites the block for ip with a TTL.
func (s *RedisStore) PutBlock(ctx context.Context, ip, reason string, blockedAt, expiresAt time.Time) error {
	ttl := expiresAt.Sub(blockedAt)
	if ttl <= 0 {
		return fmt.Errorf("blocklist: non-positive block ttl for %s", ip)
	}
	return s.cli.Set(ctx, blockKey(ip), reason, ttl).Err()
}

// IncrSuspicious bumps the counter for ip with a sliding idle TTL, so a day of
// quiet resets the count.
func (s *RedisStore) IncrSuspicious(ctx context.Context, ip string, now time.Time) (int, error) {
	n, err := s.cli.Incr(ctx, counterKey(ip)).Result()
	if err != nil {
		return 0, err
	}
	if err := s.cli.Expire(ctx, counterKey(ip), counterMaxIdle).Err(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Sweep is a no-op: Redis expires keys natively.
func (s *RedisStore) Sweep(ctx context.Context, now time.Time) error {
	return nil
}
