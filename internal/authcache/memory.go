package authcache

import (
	"context"
	"sync"
)

// Memory is the single-process Store. Entries live until overwritten or
// removed; a restart clears everything and forces re-authentication of
// claims-dependent endpoints.
type Memory struct {
	mu      sync.RWMutex
	entries map[uint]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[uint]Entry)}
}

func (m *Memory) Set(_ context.Context, userID uint, entry Entry) error {
	m.mu.Lock()
	m.entries[userID] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) TryGet(_ context.Context, userID uint) (Entry, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[userID]
	m.mu.RUnlock()
	return entry, ok, nil
}

func (m *Memory) Remove(_ context.Context, userID uint) error {
	m.mu.Lock()
	delete(m.entries, userID)
	m.mu.Unlock()
	return nil
}
