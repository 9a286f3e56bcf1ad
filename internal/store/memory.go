package store

import (
	"maps"
	"sync"
)

// MemoryBackend keeps preferences in process memory only. It is used by
// tests and by the "memory" backend kind.
type MemoryBackend struct {
	mu       sync.Mutex
	data     map[string]any
	persists int
	failWith error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]any)}
}

// NewMemoryBackendWith returns a backend preloaded with data.
func NewMemoryBackendWith(data map[string]any) *MemoryBackend {
	b := NewMemoryBackend()
	maps.Copy(b.data, data)
	return b
}

func (b *MemoryBackend) Load() (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.data), nil
}

func (b *MemoryBackend) Persist(m Mutation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.data = maps.Clone(m.Snapshot)
	b.persists++
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}

// Persists reports how many mutations were written.
func (b *MemoryBackend) Persists() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.persists
}

// FailWith makes subsequent persists return err. Pass nil to recover.
func (b *MemoryBackend) FailWith(err error) {
	b.mu.Lock()
	b.failWith = err
	b.mu.Unlock()
}

// Set replaces a value behind the store's back, as another process would.
func (b *MemoryBackend) Set(key string, v any) {
	b.mu.Lock()
	b.data[key] = v
	b.mu.Unlock()
}
