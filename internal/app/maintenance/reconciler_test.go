package maintenance

import (
	"context"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/kmarchetti/conndock/internal/connections"
	"github.com/kmarchetti/conndock/internal/secrets"
	"github.com/kmarchetti/conndock/internal/storage"
)

func newTestStore(t *testing.T) *connections.Store {
	t.Helper()
	store, err := connections.NewStore(storage.NewMemoryAdapter(), secrets.NewMemoryStore())
	require.NoError(t, err)
	return store
}

func TestReconcilerRunOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing := "missing-parent"
	orphan, err := store.Save(ctx, connections.ZoneClusters, connections.Item{
		Name:     "orphan",
		Type:     connections.TypeConnection,
		ParentID: &missing,
	})
	require.NoError(t, err)

	reconciler := NewReconciler(store)
	require.NoError(t, reconciler.RunOnce(ctx))

	got, err := store.Get(ctx, connections.ZoneClusters, orphan.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestReconcilerRunOnceNilStore(t *testing.T) {
	reconciler := NewReconciler(nil)
	require.NoError(t, reconciler.RunOnce(context.Background()))
}

func TestReconcilerStartRegistersJob(t *testing.T) {
	store := newTestStore(t)

	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	reconciler := NewReconciler(store,
		WithCron(scheduler),
		WithSchedule("@every 1h"),
	)

	require.NoError(t, reconciler.Start())
	require.Len(t, scheduler.Entries(), 1)

	<-reconciler.Stop().Done()
}

func TestReconcilerStartNilStoreAddsNothing(t *testing.T) {
	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	reconciler := NewReconciler(nil, WithCron(scheduler))

	require.NoError(t, reconciler.Start())
	require.Empty(t, scheduler.Entries())
}
