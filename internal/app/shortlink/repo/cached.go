package repo

import (
	"context"
	"log/slog"
	"time"

	"shortlink.local/internal/app/shortlink"
	"shortlink.local/internal/app/shortlink/cache"
	"shortlink.local/internal/platform/metrics"
)

// CachedStore puts a read-through cache and a bloom filter in front of another Store.
//
// The bloom filter only knows codes inserted or warmed through this process, so it assumes
// a single writer instance.
type CachedStore struct {
	next  shortlink.Store
	cache *cache.ShortlinkCache // may be nil
	bloom *cache.BloomFilter    // may be nil
}

func NewCachedStore(next shortlink.Store, c *cache.ShortlinkCache, bloom *cache.BloomFilter) *CachedStore {
	return &CachedStore{next: next, cache: c, bloom: bloom}
}

// Warm loads every existing code into the bloom filter. Without it Lookup would reject
// codes issued before the process started.
func (s *CachedStore) Warm(ctx context.Context) (int, error) {
	if s.bloom == nil {
		return 0, nil
	}
	snap, err := s.next.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	for _, l := range snap {
		s.bloom.Add(l.Code)
	}
	return len(snap), nil
}

func (s *CachedStore) InsertIfAbsent(ctx context.Context, code, url string) (bool, error) {
	// Added before the insert so no reader can see the row while the filter says "absent".
	// A failed or colliding insert leaves a harmless extra bit set.
	if s.bloom != nil {
		s.bloom.Add(code)
	}
	ok, err := s.next.InsertIfAbsent(ctx, code, url)
	if err != nil || !ok {
		return ok, err
	}

	if s.cache != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		if err := s.cache.Set(cacheCtx, code, url); err != nil {
			slog.Warn("shortlink cache set failed", "code", code, "err", err)
		}
	}
	return true, nil
}

func (s *CachedStore) Lookup(ctx context.Context, code string) (string, bool, error) {
	if s.bloom != nil && !s.bloom.MightExist(code) {
		metrics.CacheOperations.WithLabelValues("bloom", "reject").Inc()
		return "", false, nil
	}

	if s.cache != nil {
		url, ok, err := s.cache.Get(ctx, code)
		if err != nil {
			// redis down: serve from the backend
			slog.Warn("shortlink cache get failed", "code", code, "err", err)
		} else if ok {
			return url, true, nil
		}
	}

	url, found, err := s.next.Lookup(ctx, code)
	if err != nil || !found {
		return "", false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, code, url); err != nil {
			slog.Warn("shortlink cache set failed", "code", code, "err", err)
		}
	}
	return url, true, nil
}

func (s *CachedStore) Snapshot(ctx context.Context) (shortlink.Snapshot, error) {
	return s.next.Snapshot(ctx)
}
