package services

import (
	"codonledger/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DefaultQueryCacheTTL is how long a query result stays cached. Entries are
// never invalidated on writes; readers may see results up to this old.
const DefaultQueryCacheTTL = 3600 * time.Second

const queryCacheKeyPrefix = "codons:query:"

// QueryCacheBackend stores opaque cached values. Implementations report a
// missing key as (nil, false, nil) and infrastructure trouble as an error.
type QueryCacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Name() string
}

// QueryCache memoizes filtered query results in front of the ledger scan
type QueryCache struct {
	backend QueryCacheBackend
	timeout time.Duration
}

// NewQueryCache wraps a backend. A nil backend disables caching: every Get
// misses and every Put is dropped. timeout bounds each backend call.
func NewQueryCache(backend QueryCacheBackend, timeout time.Duration) *QueryCache {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &QueryCache{backend: backend, timeout: timeout}
}

// Enabled reports whether a backend is configured
func (c *QueryCache) Enabled() bool {
	return c != nil && c.backend != nil
}

// BackendName identifies the configured backend ("none" when disabled)
func (c *QueryCache) BackendName() string {
	if !c.Enabled() {
		return "none"
	}
	return c.backend.Name()
}

// Entries returns the number of cached results when the backend can count
// them. Redis is shared with other keys, so only in-process backends report.
func (c *QueryCache) Entries() (int, bool) {
	if !c.Enabled() {
		return 0, false
	}
	counter, ok := c.backend.(interface{ ItemCount() int })
	if !ok {
		return 0, false
	}
	return counter.ItemCount(), true
}

// CacheKey returns the canonical cache key for a set of filters
func CacheKey(filters models.QueryFilters) string {
	// QueryFilters only holds strings, Marshal cannot fail
	data, _ := json.Marshal(filters)
	return queryCacheKeyPrefix + string(data)
}

// Get returns the cached result for key. Backend failures come back as
// *CacheUnavailableError and must be treated as a miss.
func (c *QueryCache) Get(ctx context.Context, key string) ([]models.Codon, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, found, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, false, &CacheUnavailableError{Op: "get", Cause: err}
	}
	if !found {
		return nil, false, nil
	}

	var codons []models.Codon
	if err := json.Unmarshal(data, &codons); err != nil {
		// A corrupt entry is a miss; the live result will overwrite it
		log.Printf("⚠️ [QUERY-CACHE] Discarding undecodable entry %s: %v", key, err)
		return nil, false, nil
	}
	if codons == nil {
		codons = []models.Codon{}
	}
	return codons, true, nil
}

// Put stores a result under key for ttl, replacing any existing entry
func (c *QueryCache) Put(ctx context.Context, key string, codons []models.Codon, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(codons)
	if err != nil {
		return fmt.Errorf("failed to encode query result: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.backend.Set(ctx, key, data, ttl); err != nil {
		return &CacheUnavailableError{Op: "put", Cause: err}
	}
	return nil
}

// RedisCacheBackend keeps cached results in Redis
type RedisCacheBackend struct {
	redis *RedisService
}

// NewRedisCacheBackend creates a backend on top of the Redis service
func NewRedisCacheBackend(redisService *RedisService) *RedisCacheBackend {
	return &RedisCacheBackend{redis: redisService}
}

func (b *RedisCacheBackend) Name() string { return "redis" }

func (b *RedisCacheBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.redis.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (b *RedisCacheBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.redis.Set(ctx, key, value, ttl)
}

// MemoryCacheBackend keeps cached results in process memory. It is used when
// no Redis server is configured.
type MemoryCacheBackend struct {
	cache *cache.Cache
}

// NewMemoryCacheBackend creates an in-process backend
func NewMemoryCacheBackend() *MemoryCacheBackend {
	return &MemoryCacheBackend{
		cache: cache.New(DefaultQueryCacheTTL, 10*time.Minute),
	}
}

func (b *MemoryCacheBackend) Name() string { return "memory" }

func (b *MemoryCacheBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	value, found := b.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

func (b *MemoryCacheBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.cache.Set(key, value, ttl)
	return nil
}

// ItemCount returns the number of unexpired entries
func (b *MemoryCacheBackend) ItemCount() int {
	return b.cache.ItemCount()
}
