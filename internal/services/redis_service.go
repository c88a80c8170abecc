package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisService provides the Redis connection used by the query cache
type RedisService struct {
	client *redis.Client
	mu     sync.RWMutex
}

// NewRedisService creates a Redis client from a redis:// URL. It does not
// dial; use Ping to check reachability. An unreachable server is not fatal
// because every cache operation degrades to a live read.
func NewRedisService(redisURL string, opTimeout time.Duration) (*RedisService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opTimeout <= 0 {
		opTimeout = 500 * time.Millisecond
	}

	// Configure connection pool. Retries are disabled so a dead server is
	// detected within one operation timeout.
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = -1
	opts.DialTimeout = opTimeout
	opts.ReadTimeout = opTimeout
	opts.WriteTimeout = opTimeout

	return &RedisService{client: redis.NewClient(opts)}, nil
}

// NewRedisServiceFromClient wraps an existing client
func NewRedisServiceFromClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

// Client returns the underlying Redis client
func (r *RedisService) Client() *redis.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}

// Close closes the Redis connection
func (r *RedisService) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping checks if Redis is healthy
func (r *RedisService) Ping(ctx context.Context) error {
	return r.Client().Ping(ctx).Err()
}

// Set sets a key-value pair with optional expiration
func (r *RedisService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.Client().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key. A missing key is reported as redis.Nil.
func (r *RedisService) Get(ctx context.Context, key string) (string, error) {
	return r.Client().Get(ctx, key).Result()
}

// TTL gets the remaining time to live for a key
func (r *RedisService) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.Client().TTL(ctx, key).Result()
}
