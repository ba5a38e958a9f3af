package repo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink.local/internal/app/shortlink"
)

// storeContract is run against every backend.
func storeContract(t *testing.T, newStore func(t *testing.T) shortlink.Store) {
	t.Run("insert then lookup", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ok, err := s.InsertIfAbsent(ctx, "abc123", "https://example.com/a")
		require.NoError(t, err)
		assert.True(t, ok)

		url, found, err := s.Lookup(ctx, "abc123")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "https://example.com/a", url)
	})

	t.Run("collision keeps first binding", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ok, err := s.InsertIfAbsent(ctx, "dup001", "https://example.com/first")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.InsertIfAbsent(ctx, "dup001", "https://example.com/second")
		require.NoError(t, err)
		assert.False(t, ok)

		url, _, err := s.Lookup(ctx, "dup001")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/first", url)
	})

	t.Run("codes are case sensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ok, err := s.InsertIfAbsent(ctx, "AbCdEf", "https://example.com/upper")
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.InsertIfAbsent(ctx, "abcdef", "https://example.com/lower")
		require.NoError(t, err)
		require.True(t, ok)

		url, _, err := s.Lookup(ctx, "abcdef")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/lower", url)
	})

	t.Run("missing code", func(t *testing.T) {
		s := newStore(t)
		url, found, err := s.Lookup(context.Background(), "zzzzzz")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, url)
	})

	t.Run("snapshot in insertion order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap)

		want := shortlink.Snapshot{
			{Code: "c3", URL: "https://example.com/3"},
			{Code: "c1", URL: "https://example.com/1"},
			{Code: "c2", URL: "https://example.com/2"},
		}
		for _, l := range want {
			ok, err := s.InsertIfAbsent(ctx, l.Code, l.URL)
			require.NoError(t, err)
			require.True(t, ok)
		}
		_, _ = s.InsertIfAbsent(ctx, "c1", "https://example.com/ignored")

		snap, err = s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, snap)
	})

	t.Run("concurrent inserts of one code", func(t *testing.T) {
		s := newStore(t)
		const workers = 50
		var winners atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok, err := s.InsertIfAbsent(context.Background(), "race01", fmt.Sprintf("https://example.com/%d", i))
				if err != nil {
					t.Errorf("InsertIfAbsent: %v", err)
					return
				}
				if ok {
					winners.Add(1)
				}
			}(i)
		}
		wg.Wait()
		assert.EqualValues(t, 1, winners.Load())

		snap, err := s.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Len(t, snap, 1)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(*testing.T) shortlink.Store { return NewMemoryStore() })
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.InsertIfAbsent(ctx, "abc123", "https://example.com")
	assert.ErrorIs(t, err, context.Canceled)
	_, _, err = s.Lookup(ctx, "abc123")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Len())
}

func TestMemoryStore_SnapshotIsACopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.InsertIfAbsent(ctx, "a1", "https://example.com/1")

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	snap[0].URL = "mutated"

	url, _, _ := s.Lookup(ctx, "a1")
	assert.Equal(t, "https://example.com/1", url)
}
