package repo

import (
	"context"
	"sync"

	"shortlink.local/internal/app/shortlink"
)

// MemoryStore keeps bindings in process memory. It is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	urls  map[string]string
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{urls: make(map[string]string)}
}

func (m *MemoryStore) InsertIfAbsent(ctx context.Context, code, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.urls[code]; taken {
		return false, nil
	}
	m.urls[code] = url
	m.order = append(m.order, code)
	return true, nil
}

func (m *MemoryStore) Lookup(ctx context.Context, code string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	url, ok := m.urls[code]
	return url, ok, nil
}

func (m *MemoryStore) Snapshot(ctx context.Context) (shortlink.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(shortlink.Snapshot, 0, len(m.order))
	for _, code := range m.order {
		snap = append(snap, shortlink.Link{Code: code, URL: m.urls[code]})
	}
	return snap, nil
}

// Len returns the number of bindings.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
