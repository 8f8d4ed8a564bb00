package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryBackend keeps sessions in process memory. Sessions are lost on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (b *MemoryBackend) Get(_ context.Context, id string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.entries[id]
	if !ok || !entry.expiresAt.After(b.now()) {
		return nil, ErrSessionNotFound
	}

	data := make([]byte, len(entry.data))
	copy(data, entry.data)
	return data, nil
}

func (b *MemoryBackend) Set(_ context.Context, id string, data []byte, expiresAt time.Time) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	b.mu.Lock()
	b.entries[id] = memoryEntry{data: stored, expiresAt: expiresAt}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Destroy(_ context.Context, id string) error {
	b.mu.Lock()
	delete(b.entries, id)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) DeleteExpired(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int64
	now := b.now()
	for id, entry := range b.entries {
		if !entry.expiresAt.After(now) {
			delete(b.entries, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
