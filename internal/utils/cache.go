package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Generation formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// Invalidator drops every cached entry of one namespace
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// RedisCache is a namespaced JSON cache whose entries are invalidated in bulk
// by bumping a generation counter instead of scanning keys. A nil *RedisCache
// caches nothing.
type RedisCache struct {
	rdb       *redis.Client // Redis client
	namespace string        // Key prefix, e.g. "txquery"
	ttl       time.Duration // Entry lifetime
}

// NewRedisCache creates a cache under namespace
func NewRedisCache(rdb *redis.Client, namespace string, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, namespace: namespace, ttl: ttl}
}

func (c *RedisCache) generationKey() string {
	return c.namespace + ":generation"
}

// Key builds the entry key for suffix under the current generation
func (c *RedisCache) Key(ctx context.Context, suffix string) (string, error) {
	if c == nil {
		return "", nil // Caching disabled
	}
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64() // Current generation
	if err != nil && err != redis.Nil {
		return "", err
	}
	return c.namespace + ":g" + strconv.FormatInt(gen, 10) + ":" + suffix, nil
}

// Get loads a cached entry into dest
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || key == "" {
		return false, nil
	}
	return GetCache(ctx, c.rdb, key, dest)
}

// Set stores an entry with the cache TTL
func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	if c == nil || key == "" {
		return nil
	}
	return SetCache(ctx, c.rdb, key, value, c.ttl)
}

// Invalidate drops every entry of the namespace by moving to a new generation
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Incr(ctx, c.generationKey()).Err()
}
