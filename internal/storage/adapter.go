package storage

import (
	"context"
	"errors"

	"github.com/kmarchetti/conndock/internal/models"
)

// ErrDuplicateID indicates a Push with overwrite disabled hit an existing item id.
var ErrDuplicateID = errors.New("storage: duplicate item id")

// Adapter is the persistence primitive the connection store is built on.
// It knows nothing about parent/child integrity or zone semantics beyond
// using the zone as part of the lookup key; all invariant enforcement
// lives in the connection store.
type Adapter interface {
	// GetItems returns every item stored in a zone, in no particular order.
	GetItems(ctx context.Context, zone string) ([]models.StorageItem, error)

	// GetItem returns the item with the given id, or nil when it does not exist.
	GetItem(ctx context.Context, zone, id string) (*models.StorageItem, error)

	// Push upserts an item. When overwrite is false and the id already
	// exists, ErrDuplicateID is returned.
	Push(ctx context.Context, zone string, item models.StorageItem, overwrite bool) error

	// Delete removes an item. Deleting a missing id is not an error.
	Delete(ctx context.Context, zone, id string) error

	// Keys enumerates item ids in a zone without deserialising full records.
	Keys(ctx context.Context, zone string) ([]string, error)
}
