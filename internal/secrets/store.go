// Package secrets keeps credential material in a store separate from item
// metadata, keyed by the same (zone, id) pair, so listings never touch
// secret payloads.
package secrets

import "context"

// Store persists the secrets bag for an item.
type Store interface {
	// Put stores or replaces the secrets bag for an item.
	Put(ctx context.Context, zone, id string, bag map[string]string) error

	// Get returns the secrets bag, or nil when none is stored.
	Get(ctx context.Context, zone, id string) (map[string]string, error)

	// Delete removes the secrets bag; a missing entry is not an error.
	Delete(ctx context.Context, zone, id string) error
}
