package store

import (
	"context"
	"errors"
	"sync"
)

var errQuotaExceeded = errors.New("storage quota exceeded")

// MemoryBackend is a process-local Backend for tests and throwaway runs.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailWrites makes Set return an error, to exercise write-failure paths.
	FailWrites bool
}

func NewMemory() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errQuotaExceeded
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
