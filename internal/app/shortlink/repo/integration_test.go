package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink.local/internal/app/shortlink"
	"shortlink.local/internal/app/shortlink/cache"
	"shortlink.local/internal/testutil"
)

func TestPostgresStore(t *testing.T) {
	pool := testutil.Postgres(t)
	storeContract(t, func(t *testing.T) shortlink.Store {
		testutil.TruncateLinks(t, pool)
		return NewPostgresStore(pool)
	})
}

func TestRedisStore(t *testing.T) {
	client := testutil.Redis(t)
	storeContract(t, func(t *testing.T) shortlink.Store {
		testutil.FlushRedis(t, client)
		return NewRedisStore(client)
	})
}

func TestCachedStore(t *testing.T) {
	pool := testutil.Postgres(t)
	client := testutil.Redis(t)

	newCached := func(t *testing.T) *CachedStore {
		testutil.TruncateLinks(t, pool)
		testutil.FlushRedis(t, client)
		local, err := cache.NewLocalCache(1000, time.Minute)
		require.NoError(t, err)
		c := cache.NewShortlinkCache(client, local, time.Hour)
		t.Cleanup(c.Close)
		return NewCachedStore(NewPostgresStore(pool), c, cache.NewBloomFilter(10_000, 0.01))
	}

	storeContract(t, func(t *testing.T) shortlink.Store { return newCached(t) })

	t.Run("warm admits codes inserted before start", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateLinks(t, pool)
		backend := NewPostgresStore(pool)
		for i := 0; i < 10; i++ {
			ok, err := backend.InsertIfAbsent(ctx, fmt.Sprintf("old%03d", i), fmt.Sprintf("https://example.com/%d", i))
			require.NoError(t, err)
			require.True(t, ok)
		}

		s := NewCachedStore(backend, nil, cache.NewBloomFilter(10_000, 0.01))
		_, found, err := s.Lookup(ctx, "old003")
		require.NoError(t, err)
		assert.False(t, found, "cold bloom filter rejects unknown codes")

		n, err := s.Warm(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		url, found, err := s.Lookup(ctx, "old003")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "https://example.com/3", url)
	})

	t.Run("miss is never cached", func(t *testing.T) {
		ctx := context.Background()
		s := newCached(t)

		_, found, err := s.Lookup(ctx, "late01")
		require.NoError(t, err)
		require.False(t, found)

		ok, err := s.InsertIfAbsent(ctx, "late01", "https://example.com/late")
		require.NoError(t, err)
		require.True(t, ok)

		url, found, err := s.Lookup(ctx, "late01")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "https://example.com/late", url)
	})

	t.Run("hit is served from redis", func(t *testing.T) {
		ctx := context.Background()
		s := newCached(t)

		ok, err := s.InsertIfAbsent(ctx, "hot001", "https://example.com/hot")
		require.NoError(t, err)
		require.True(t, ok)

		got, err := client.Get(ctx, "sl:hot001").Result()
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/hot", got)
	})
}
