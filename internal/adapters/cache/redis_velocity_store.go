package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVelocityStore counts click events per origin with window-aligned TTL.
// Cache-backed so the hot click path never touches the primary store.
type RedisVelocityStore struct {
	client *redis.Client
}

// NewRedisVelocityStore creates a velocity counter backed by Redis.
func NewRedisVelocityStore(client *redis.Client) *RedisVelocityStore {
	return &RedisVelocityStore{client: client}
}

func (s *RedisVelocityStore) Record(ctx context.Context, originKey string, window time.Duration) (int, error) {
	count, err := s.client.Incr(ctx, originKey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// First event opens the trailing window.
		_ = s.client.Expire(ctx, originKey, window).Err()
	}
	return int(count), nil
}
