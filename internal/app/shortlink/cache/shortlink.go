package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"shortlink.local/internal/platform/metrics"
)

const keyPrefix = "sl:"

// ShortlinkCache is a two-level read-through cache of code -> url (L1 ristretto, L2 redis).
//
// Bindings never change once written, so positive entries cannot go stale. Misses are not
// cached: a "not found" written here could outlive the insert that follows it.
type ShortlinkCache struct {
	client *redis.Client
	local  *LocalCache // may be nil
	ttl    time.Duration
}

func NewShortlinkCache(client *redis.Client, local *LocalCache, ttl time.Duration) *ShortlinkCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ShortlinkCache{
		client: client,
		local:  local,
		ttl:    ttl,
	}
}

func (c *ShortlinkCache) Get(ctx context.Context, code string) (string, bool, error) {
	if c.local != nil {
		if url, ok := c.local.Get(code); ok {
			metrics.CacheOperations.WithLabelValues("l1", "hit").Inc()
			return url, true, nil
		}
		metrics.CacheOperations.WithLabelValues("l1", "miss").Inc()
	}

	url, err := c.client.Get(ctx, keyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheOperations.WithLabelValues("l2", "miss").Inc()
		return "", false, nil
	}
	if err != nil {
		metrics.CacheOperations.WithLabelValues("l2", "error").Inc()
		return "", false, err
	}
	metrics.CacheOperations.WithLabelValues("l2", "hit").Inc()

	// 回填本地缓存
	if c.local != nil {
		c.local.Set(code, url)
	}
	return url, true, nil
}

func (c *ShortlinkCache) Set(ctx context.Context, code, url string) error {
	if c.local != nil {
		c.local.Set(code, url)
	}
	return c.client.Set(ctx, keyPrefix+code, url, c.ttl).Err()
}

func (c *ShortlinkCache) Close() {
	if c.local != nil {
		c.local.Close()
		slog.Info("local cache closed")
	}
}
