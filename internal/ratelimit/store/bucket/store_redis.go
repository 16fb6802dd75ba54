package bucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"veritrail/internal/ratelimit/models"
)

const keyPrefix = "veritrail:ratelimit:bucket:"

// RedisStore implements Store on Redis so persisted buckets survive restarts
// and are shared between replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed bucket store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.BucketSnapshot, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bucket snapshot: %w", err)
	}

	var snap models.BucketSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode bucket snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, snap models.BucketSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode bucket snapshot: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("put bucket snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete bucket snapshot: %w", err)
	}
	return nil
}
