package tokenstore

import (
	"context"
	"sync"
)

type key struct {
	userID   string
	provider string
}

// MemoryBackend keeps records in a process-local map
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[key]Record
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[key]Record)}
}

// Put stores a copy of rec
func (b *MemoryBackend) Put(ctx context.Context, rec *Record) error {
	b.mu.Lock()
	b.records[key{rec.UserID, rec.Provider}] = *rec
	b.mu.Unlock()
	return nil
}

// Get returns a copy of the stored record
func (b *MemoryBackend) Get(ctx context.Context, userID, provider string) (*Record, error) {
	b.mu.RLock()
	rec, ok := b.records[key{userID, provider}]
	b.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Delete removes the record
func (b *MemoryBackend) Delete(ctx context.Context, userID, provider string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{userID, provider}
	if _, ok := b.records[k]; !ok {
		return false, nil
	}
	delete(b.records, k)
	return true, nil
}

// CheckHealth always succeeds for the in-memory backend
func (b *MemoryBackend) CheckHealth(ctx context.Context) error {
	return nil
}
