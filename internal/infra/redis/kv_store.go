package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"promo-quiz/internal/infra/kv"
)

// KVStore is a Redis-backed kv.Backend. Every logical key maps to one Redis
// string holding the JSON value; SET replaces it atomically.
type KVStore struct {
	client *redis.Client
	prefix string
}

// NewKVStore namespaces keys with prefix (e.g. "promo:").
func NewKVStore(client *redis.Client, prefix string) *KVStore {
	return &KVStore{client: client, prefix: prefix}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *KVStore) key(key string) string {
	return s.prefix + key
}
