// Package cache holds the shared Redis tier used to memoize reference data
// across server replicas.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/maternity-risk-server/internal/domain"
)

// ErrUnavailable is returned when the breaker is open or Redis fails.
// Callers treat it as a cache miss.
var ErrUnavailable = errors.New("shared cache unavailable")

// CacheClient wraps a Redis client with a circuit breaker and JSON envelopes.
type CacheClient struct {
	redis   *redis.Client
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// cachedCategoryIDs is the stored envelope for a resolved category mapping.
type cachedCategoryIDs struct {
	Data      domain.CategoryIDs `json:"data"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// NewCacheClient parses the Redis URL, applies pool settings and checks the
// connection once.
func NewCacheClient(config domain.CacheConfig, logger *logrus.Logger) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewCacheClientWithRedis(client, logger), nil
}

// NewCacheClientWithRedis wraps an already configured client without probing it.
func NewCacheClientWithRedis(client *redis.Client, logger *logrus.Logger) *CacheClient {
	settings := gobreaker.Settings{
		Name:        "redis-category-cache",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker changed state")
		},
	}

	return &CacheClient{
		redis:   client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     logger,
	}
}

// GetCategoryIDs returns the cached mapping stored under key. A miss,
// expired entry or corrupt entry yields (nil, false, nil).
func (c *CacheClient) GetCategoryIDs(ctx context.Context, key string) (domain.CategoryIDs, bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		val, err := c.redis.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return val, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %w", ErrUnavailable, key, err)
	}
	if result == nil {
		return nil, false, nil
	}

	var cached cachedCategoryIDs
	if err := json.Unmarshal([]byte(result.(string)), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// SetCategoryIDs stores the mapping under key for ttl.
func (c *CacheClient) SetCategoryIDs(ctx context.Context, key string, ids domain.CategoryIDs, ttl time.Duration) error {
	now := time.Now()
	payload, err := json.Marshal(cachedCategoryIDs{
		Data:      ids,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal category cache data: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.redis.Set(ctx, key, payload, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Delete removes the given keys.
func (c *CacheClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.redis.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: delete: %w", ErrUnavailable, err)
	}
	return nil
}

// State reports the breaker state, for health output.
func (c *CacheClient) State() gobreaker.State {
	return c.breaker.State()
}

// Ping checks if Redis connection is alive
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.redis.Close()
}
