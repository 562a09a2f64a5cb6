package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/quiz-pool/internal/pool"
)

const defaultKeyPrefix = "quizpool"

// RedisPoolStore keeps the active pool and policy as JSON strings in Redis.
// A single SET replaces the pool, so readers never see a partial value.
type RedisPoolStore struct {
	client redis.Cmdable
	prefix string
}

var _ pool.PoolStore = (*RedisPoolStore)(nil)

func NewRedisPoolStore(client redis.Cmdable, prefix string) *RedisPoolStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisPoolStore{client: client, prefix: prefix}
}

func (s *RedisPoolStore) poolKey() string { return s.prefix + ":active" }

func (s *RedisPoolStore) metaKey() string { return s.prefix + ":meta" }

func (s *RedisPoolStore) LoadPool(ctx context.Context) (pool.Pool, error) {
	var p pool.Pool
	if err := s.get(ctx, s.poolKey(), &p); err != nil {
		return pool.Pool{}, err
	}
	return p, nil
}

func (s *RedisPoolStore) SavePool(ctx context.Context, p pool.Pool) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode active pool: %w", err)
	}
	if err := s.client.Set(ctx, s.poolKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.poolKey(), err)
	}
	return nil
}

func (s *RedisPoolStore) LoadPolicy(ctx context.Context) (pool.PolicyOverrides, error) {
	var o pool.PolicyOverrides
	if err := s.get(ctx, s.metaKey(), &o); err != nil {
		return pool.PolicyOverrides{}, err
	}
	return o, nil
}

func (s *RedisPoolStore) get(ctx context.Context, key string, dst any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s: %w", key, pool.ErrNotFound)
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
