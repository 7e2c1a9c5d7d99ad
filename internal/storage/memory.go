package storage

import (
	"context"
	"sync"

	"github.com/kmarchetti/conndock/internal/models"
)

// MemoryAdapter is a map-backed Adapter used in tests and ephemeral deployments.
type MemoryAdapter struct {
	mu    sync.RWMutex
	zones map[string]map[string]models.StorageItem
}

// NewMemoryAdapter constructs an empty in-memory Adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		zones: make(map[string]map[string]models.StorageItem),
	}
}

// GetItems returns every item stored in a zone.
func (a *MemoryAdapter) GetItems(_ context.Context, zone string) ([]models.StorageItem, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	items := make([]models.StorageItem, 0, len(a.zones[zone]))
	for _, item := range a.zones[zone] {
		items = append(items, item)
	}
	return items, nil
}

// GetItem returns a single item or nil when it does not exist.
func (a *MemoryAdapter) GetItem(_ context.Context, zone, id string) (*models.StorageItem, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	item, ok := a.zones[zone][id]
	if !ok {
		return nil, nil
	}
	cpy := item
	return &cpy, nil
}

// Push upserts an item. With overwrite disabled an existing id yields ErrDuplicateID.
func (a *MemoryAdapter) Push(_ context.Context, zone string, item models.StorageItem, overwrite bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	bucket, ok := a.zones[zone]
	if !ok {
		bucket = make(map[string]models.StorageItem)
		a.zones[zone] = bucket
	}

	if _, exists := bucket[item.ItemID]; exists && !overwrite {
		return ErrDuplicateID
	}

	item.Zone = zone
	bucket[item.ItemID] = item
	return nil
}

// Delete removes an item; a missing id is a no-op.
func (a *MemoryAdapter) Delete(_ context.Context, zone, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.zones[zone], id)
	return nil
}

// Keys enumerates item ids in a zone.
func (a *MemoryAdapter) Keys(_ context.Context, zone string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.zones[zone]))
	for id := range a.zones[zone] {
		ids = append(ids, id)
	}
	return ids, nil
}
