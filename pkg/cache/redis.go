package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisStore is a Store backend for deployments that already run Redis.
// Entry TTLs map onto native key expiry.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client as a cache Store.
func NewRedisStore(client *redis.Client) Store {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, nil
}

func (s *redisStore) Set(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, key, data, entry.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *redisStore) Purge(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, "sgs:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis purge: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis purge scan: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op for Redis: expired keys are evicted natively,
// so there is nothing left to count.
func (s *redisStore) PurgeExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
