package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint given to SCAN.
const scanBatch = 100

// KV implements kv.Store on top of a redis client.
// Values are stored without expiry; session lifetime is enforced by the janitor.
type KV struct {
	client *redis.Client
}

// NewKV creates a redis-backed key/value store
func NewKV(client *redis.Client) *KV {
	return &KV{
		client: client,
	}
}

// Get retrieves a value. A missing key is ("", false, nil).
func (s *KV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores a value with no TTL
func (s *KV) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored
func (s *KV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Keys lists keys by prefix using SCAN, never KEYS.
func (s *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s*: %w", prefix, err)
	}
	return keys, nil
}

// Ping checks the connection, used by the infra endpoint.
func (s *KV) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
