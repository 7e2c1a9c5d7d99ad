package secrets

import (
	"context"
	"sync"
)

// MemoryStore is a map-backed Store used in tests and ephemeral deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	zones map[string]map[string]map[string]string
}

// NewMemoryStore constructs an empty in-memory secret store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		zones: make(map[string]map[string]map[string]string),
	}
}

// Put stores or replaces the secrets bag for an item.
func (s *MemoryStore) Put(_ context.Context, zone, id string, bag map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.zones[zone]
	if !ok {
		bucket = make(map[string]map[string]string)
		s.zones[zone] = bucket
	}
	bucket[id] = cloneBag(bag)
	return nil
}

// Get returns the secrets bag, or nil when none is stored.
func (s *MemoryStore) Get(_ context.Context, zone, id string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bag, ok := s.zones[zone][id]
	if !ok {
		return nil, nil
	}
	return cloneBag(bag), nil
}

// Delete removes the secrets bag; a missing entry is a no-op.
func (s *MemoryStore) Delete(_ context.Context, zone, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.zones[zone], id)
	return nil
}

func cloneBag(bag map[string]string) map[string]string {
	if bag == nil {
		return nil
	}
	cpy := make(map[string]string, len(bag))
	for k, v := range bag {
		cpy[k] = v
	}
	return cpy
}
