package session

import (
	"context"
	"sync"
)

// MemoryStore is the single-instance backing: a plain map behind a mutex.
// Sessions live until deleted or the process exits.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.m[id]
	if !ok {
		return nil, ErrNotFound
	}

	copied := make([]byte, len(payload))
	copy(copied, payload)
	return copied, nil
}

func (s *MemoryStore) Put(ctx context.Context, id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(payload))
	copy(copied, payload)
	s.m[id] = copied
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, id)
	return nil
}
