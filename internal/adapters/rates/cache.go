package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by Cache.Get when nothing usable is cached.
var ErrCacheMiss = errors.New("rate not cached")

// Cache stores exchange rates between lookups.
type Cache interface {
	Get(ctx context.Context, key string) (float64, error)
	Set(ctx context.Context, key string, rate float64, ttl time.Duration) error
}

// RedisConfig configures the Redis rate cache.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// RedisCache caches rates in Redis. A disabled cache always misses.
type RedisCache struct {
	client  *redis.Client
	enabled bool
}

type cachedRate struct {
	Rate     float64   `json:"rate"`
	StoredAt time.Time `json:"stored_at"`
}

// NewRedisCache connects to Redis when cfg.Enabled is set.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return &RedisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{
		client:  client,
		enabled: true,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (float64, error) {
	if !c.enabled {
		return 0, ErrCacheMiss
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("get rate from redis: %w", err)
	}
	var v cachedRate
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("unmarshal cached rate: %w", err)
	}
	return v.Rate, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, rate float64, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	data, err := json.Marshal(cachedRate{Rate: rate, StoredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal rate: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set rate in redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func rateCacheKey(coin, fiat string) string {
	return fmt.Sprintf("rate:%s:%s", coin, fiat)
}
