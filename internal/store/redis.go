package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
}

// RedisStore is safe for concurrent use; go-redis pools the connections.
type RedisStore struct {
	client *redis.Client
}

// New connects to Redis and pings it once. The client is closed again if the
// ping fails.
func New(ctx context.Context, opts Options) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrUnreachable, opts.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get reads the counters for keys in one round trip. Missing keys read as 0.
func (s *RedisStore) Get(ctx context.Context, keys ...string) ([]int64, error) {
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	counts := make([]int64, len(keys))
	for i, raw := range values {
		if raw == nil {
			continue
		}

		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: key %q", ErrNotInteger, keys[i])
		}

		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %w", ErrNotInteger, keys[i], err)
		}
		counts[i] = n
	}

	return counts, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value int64) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// SetIfAbsent writes value only when key does not exist and reports whether it
// did.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, value int64) (bool, error) {
	return s.client.SetNX(ctx, key, value, 0).Result()
}

// Increment atomically adds by to key and returns the new value.
func (s *RedisStore) Increment(ctx context.Context, key string, by int64) (int64, error) {
	return s.client.IncrBy(ctx, key, by).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
