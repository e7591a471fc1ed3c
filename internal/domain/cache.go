package domain

import (
	"context"
	"time"
)

// Cache defines the caching surface used by the monitoring API for
// latest-prediction lookups. Keys are scoped by intermediary code so one
// cache instance can serve several intermediaries.
type Cache interface {
	// Get retrieves a value. Returns nil, nil if the key is not present.
	Get(ctx context.Context, intermediary string, key string) ([]byte, error)

	// Set stores a value with expiration.
	Set(ctx context.Context, intermediary string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, intermediary string, key string) error

	// GetLatestPredictions retrieves cached latest-prediction rows for a
	// scope key. Returns nil, nil on miss.
	GetLatestPredictions(ctx context.Context, intermediary string, key string) ([]*RegistryEntry, error)

	// SetLatestPredictions caches latest-prediction rows.
	SetLatestPredictions(ctx context.Context, intermediary string, key string, rows []*RegistryEntry, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}
