package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent. Callers treat a
// miss the same as any other cache failure: read from the source store.
var ErrCacheMiss = errors.New("cache: miss")

// RedisOptions carries the connection settings for the user cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisClient adapts go-redis to the CacheClient interface, storing values as
// JSON blobs.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient connects and pings. Startup fails fast on a bad address
// rather than surfacing per-request cache errors later.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping to %s failed: %w", opts.Addr, err)
	}

	return &RedisClient{rdb: rdb}, nil
}

func (c *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A corrupt entry behaves like a miss; the decorator will overwrite it.
		return fmt.Errorf("%w: undecodable entry for %s", ErrCacheMiss, key)
	}
	return nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

func (c *RedisClient) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

var _ CacheClient = (*RedisClient)(nil)
