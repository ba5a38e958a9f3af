package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// LocalCache is the in-process L1 in front of redis. It only ever holds positive entries.
type LocalCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewLocalCache
// maxItems: 最大缓存条目数（建议 10000-100000），每条 cost=1
func NewLocalCache(maxItems int64, ttl time.Duration) (*LocalCache, error) {
	if maxItems <= 0 {
		maxItems = 100_000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10, // 计数器数量，建议为 maxItems 的 10 倍
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &LocalCache{cache: c, ttl: ttl}, nil
}

func (l *LocalCache) Get(code string) (string, bool) {
	v, ok := l.cache.Get(code)
	if !ok {
		return "", false
	}
	url, ok := v.(string)
	return url, ok
}

// Set may be dropped by ristretto's admission policy; a miss just falls through to L2.
func (l *LocalCache) Set(code, url string) {
	l.cache.SetWithTTL(code, url, 1, l.ttl)
}

// Wait blocks until buffered writes are applied.
func (l *LocalCache) Wait() {
	l.cache.Wait()
}

func (l *LocalCache) Close() {
	l.cache.Close()
}
