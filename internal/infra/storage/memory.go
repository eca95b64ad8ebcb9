package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/bryanwahyu/cyberveli/internal/domain/history"
)

// MemoryStore keeps images in process. Used when MinIO is disabled and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	cp := append([]byte(nil), data...)
	s.mu.Lock()
	s.objects[key] = cp
	s.mu.Unlock()
	return "mem://" + key, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: image %s", history.ErrNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *MemoryStore) Check(context.Context) error { return nil }
