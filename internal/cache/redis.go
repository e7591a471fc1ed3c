package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache using Redis, for deployments where several
// nodes serve the monitoring API.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, intermediary string, key string) ([]byte, error) {
	if intermediary == "" {
		return nil, fmt.Errorf("intermediary code is required")
	}

	fullKey := c.makeKey(intermediary, key)
	val, err := c.client.Get(ctx, fullKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with TTL.
func (c *RedisCache) Set(ctx context.Context, intermediary string, key string, value []byte, ttl time.Duration) error {
	if intermediary == "" {
		return fmt.Errorf("intermediary code is required")
	}

	fullKey := c.makeKey(intermediary, key)
	return c.client.Set(ctx, fullKey, value, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, intermediary string, key string) error {
	if intermediary == "" {
		return fmt.Errorf("intermediary code is required")
	}

	fullKey := c.makeKey(intermediary, key)
	return c.client.Del(ctx, fullKey).Err()
}

// GetLatestPredictions retrieves cached latest-prediction rows.
func (c *RedisCache) GetLatestPredictions(ctx context.Context, intermediary string, key string) ([]*domain.RegistryEntry, error) {
	data, err := c.Get(ctx, intermediary, "latest:"+key)
	if err != nil || data == nil {
		return nil, err
	}

	var rows []*domain.RegistryEntry
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SetLatestPredictions caches latest-prediction rows.
func (c *RedisCache) SetLatestPredictions(ctx context.Context, intermediary string, key string, rows []*domain.RegistryEntry, ttl time.Duration) error {
	bytes, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.Set(ctx, intermediary, "latest:"+key, bytes, ttl)
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) makeKey(intermediary, key string) string {
	return "kestrel:" + intermediary + ":" + key
}
