package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"bindirectory/pkg/platform/sentinel"
)

// RedisKV adapts a go-redis client to the KV contract. This is the
// production cache backend shared by all instances of the service.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps an already-connected client; its lifecycle is managed by
// the caller.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
