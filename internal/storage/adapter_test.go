package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kmarchetti/conndock/internal/database/testutil"
	"github.com/kmarchetti/conndock/internal/models"
)

// adapterUnderTest lets the same contract suite run against both implementations.
func adapters(t *testing.T) map[string]Adapter {
	t.Helper()

	dbAdapter, err := NewDatabaseAdapter(testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()))
	require.NoError(t, err)

	return map[string]Adapter{
		"database": dbAdapter,
		"memory":   NewMemoryAdapter(),
	}
}

func TestAdapterPushAndGet(t *testing.T) {
	for name, adapter := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			item := models.StorageItem{
				ItemID:     "item-1",
				Name:       "prod cluster",
				Type:       "connection",
				Properties: datatypes.JSON(`{"api":"documentdb"}`),
			}

			require.NoError(t, adapter.Push(ctx, "clusters", item, false))

			got, err := adapter.GetItem(ctx, "clusters", "item-1")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, "prod cluster", got.Name)
			require.Equal(t, "clusters", got.Zone)
		})
	}
}

func TestAdapterPushDuplicateID(t *testing.T) {
	for name, adapter := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			item := models.StorageItem{ItemID: "dup", Name: "first", Type: "connection"}

			require.NoError(t, adapter.Push(ctx, "clusters", item, false))

			item.Name = "second"
			err := adapter.Push(ctx, "clusters", item, false)
			require.ErrorIs(t, err, ErrDuplicateID)

			// Overwrite succeeds and replaces the record.
			require.NoError(t, adapter.Push(ctx, "clusters", item, true))
			got, err := adapter.GetItem(ctx, "clusters", "dup")
			require.NoError(t, err)
			require.Equal(t, "second", got.Name)
		})
	}
}

func TestAdapterZoneKeying(t *testing.T) {
	for name, adapter := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			item := models.StorageItem{ItemID: "shared-id", Name: "emu", Type: "connection"}

			require.NoError(t, adapter.Push(ctx, "emulators", item, false))

			got, err := adapter.GetItem(ctx, "clusters", "shared-id")
			require.NoError(t, err)
			require.Nil(t, got)

			// Same id may exist independently in another zone.
			require.NoError(t, adapter.Push(ctx, "clusters", item, false))
		})
	}
}

func TestAdapterDeleteIsIdempotent(t *testing.T) {
	for name, adapter := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			item := models.StorageItem{ItemID: "gone", Name: "tmp", Type: "folder"}

			require.NoError(t, adapter.Push(ctx, "clusters", item, false))
			require.NoError(t, adapter.Delete(ctx, "clusters", "gone"))
			require.NoError(t, adapter.Delete(ctx, "clusters", "gone"))

			got, err := adapter.GetItem(ctx, "clusters", "gone")
			require.NoError(t, err)
			require.Nil(t, got)
		})
	}
}

func TestAdapterKeys(t *testing.T) {
	for name, adapter := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, adapter.Push(ctx, "clusters", models.StorageItem{ItemID: "a", Name: "a", Type: "folder"}, false))
			require.NoError(t, adapter.Push(ctx, "clusters", models.StorageItem{ItemID: "b", Name: "b", Type: "connection"}, false))

			keys, err := adapter.Keys(ctx, "clusters")
			require.NoError(t, err)
			require.ElementsMatch(t, []string{"a", "b"}, keys)
		})
	}
}
