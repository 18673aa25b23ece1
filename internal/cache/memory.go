package cache

import (
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store, used by tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	saves   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Load(key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("no entry for %q", key)
	}
	return &entry, nil
}

func (s *MemoryStore) Save(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key] = entry
	s.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
