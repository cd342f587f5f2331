package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/simplesagar/dub/internal/domain"
	"github.com/simplesagar/dub/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Cache keeps resolved links in Redis for the redirect path
// (cache-aside: read here, fall back to Postgres, write back).
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new Redis cache
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// linkKey is "link:{domain}:{key}"
func linkKey(domainName, key string) string {
	return fmt.Sprintf("link:%s:%s", domainName, key)
}

// GetLink retrieves a link from cache.
// Returns nil, nil on a miss.
func (c *Cache) GetLink(ctx context.Context, domainName, key string) (*domain.Link, error) {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	data, err := c.client.Get(ctx, linkKey(domainName, key)).Bytes()
	if err == redis.Nil {
		metrics.RecordCacheMiss()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	metrics.RecordCacheHit()

	var link domain.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached link: %w", err)
	}

	return &link, nil
}

// SetLink stores a link in cache
func (c *Cache) SetLink(ctx context.Context, link *domain.Link) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())
	}()

	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	if err := c.client.Set(ctx, linkKey(link.Domain, link.Key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

// DeleteLink removes a link from cache
// Used when a link is updated or its key moves
func (c *Cache) DeleteLink(ctx context.Context, domainName, key string) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	}()

	if err := c.client.Del(ctx, linkKey(domainName, key)).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}

	return nil
}

// InitRedis creates a new Redis client
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NoopCache is used when Redis is disabled. Every lookup misses.
type NoopCache struct{}

func (NoopCache) GetLink(context.Context, string, string) (*domain.Link, error) { return nil, nil }
func (NoopCache) SetLink(context.Context, *domain.Link) error                   { return nil }
func (NoopCache) DeleteLink(context.Context, string, string) error              { return nil }
