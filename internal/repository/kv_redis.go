package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisKVStore struct {
	client *redis.Client
}

// NewRedisKVStore wraps a redis client as the durable key-value store used
// for rate-guard timestamps and session markers.
func NewRedisKVStore(client *redis.Client) KVStore {
	return &redisKVStore{client: client}
}

// Get returns the value for key, or the empty string when the key is absent.
func (s *redisKVStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *redisKVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisKVStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
