package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key the Redis store writes.
const DefaultNamespace = "wavespace:cache:"

// Redis is a Store shared between processes through a Redis server.
type Redis struct {
	rdb       *redis.Client
	namespace string
	owned     bool
}

// RedisConfig describes how to reach the server.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Namespace string `yaml:"namespace"`
}

// NewRedis dials a client for cfg. The store owns the client and closes it.
func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s := NewRedisWithClient(rdb, cfg.Namespace)
	s.owned = true
	return s
}

// NewRedisWithClient wraps an existing client. Close leaves it open.
func NewRedisWithClient(rdb *redis.Client, namespace string) *Redis {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Redis{rdb: rdb, namespace: namespace}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache.Redis.Ping: %w", err)
	}
	return nil
}

func (r *Redis) key(k string) string {
	return r.namespace + k
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache.Redis.Get: %w", err)
	}
	return b, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := r.rdb.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache.Redis.Set: %w", err)
	}
	return nil
}

// DeletePrefix implements Store using SCAN so large keyspaces are not blocked.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := r.scan(ctx, r.key(prefix)+"*")
	if err != nil {
		return fmt.Errorf("cache.Redis.DeletePrefix: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache.Redis.DeletePrefix: %w", err)
	}
	return nil
}

// Clear implements Store. Only keys inside the namespace are removed.
func (r *Redis) Clear(ctx context.Context) error {
	return r.DeletePrefix(ctx, "")
}

// Len implements Store.
func (r *Redis) Len(ctx context.Context) (int, error) {
	keys, err := r.scan(ctx, r.key("")+"*")
	if err != nil {
		return 0, fmt.Errorf("cache.Redis.Len: %w", err)
	}
	return len(keys), nil
}

// Close implements Store.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.rdb.Close()
}

func (r *Redis) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
