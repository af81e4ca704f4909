package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gofalre.io/storefront/event"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/storage"
)

func TestStoreInitialResync(t *testing.T) {
	mem := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Write(ctx, Key, []byte(`[{"id":"p1","cost":10,"Quantity":2}]`)))

	store := NewStore(mem, event.NewBus(), zap.NewNop())
	assert.True(t, store.Loading())

	store.Start(ctx)
	defer store.Close()

	assert.False(t, store.Loading())
	assert.Equal(t, 1, store.LineCount())
	assert.Equal(t, int64(2), store.TotalQuantity())
	assert.InDelta(t, 20.0, store.TotalCost(), 1e-9)
}

func TestStoreResyncOnBroadcast(t *testing.T) {
	mem := storage.NewMemory()
	bus := event.NewBus()
	ctx := context.Background()

	store := NewStore(mem, bus, zap.NewNop())
	store.Start(ctx)
	defer store.Close()

	mutator := NewMutator(mem, bus, zap.NewNop())
	_, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 5}, 3, enum.CartModeAdd, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, store.LineCount())
	assert.Equal(t, int64(3), store.TotalQuantity())
	assert.InDelta(t, 15.0, store.TotalCost(), 1e-9)
}

func TestStoresConvergeAcrossContexts(t *testing.T) {
	// Two stores with independent buses but shared storage model two separate
	// contexts; the storage change notification is their only link.
	mem := storage.NewMemory()
	ctx := context.Background()

	local := NewStore(mem, event.NewBus(), zap.NewNop())
	local.Start(ctx)
	defer local.Close()

	remote := NewStore(mem, event.NewBus(), zap.NewNop())
	remote.Start(ctx)
	defer remote.Close()

	mutator := NewMutator(mem, local.bus, zap.NewNop())
	_, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10}, 2, enum.CartModeAdd, nil)
	require.NoError(t, err)

	assert.Equal(t, local.Lines(), remote.Lines())
	assert.Equal(t, local.Summary(), remote.Summary())
	assert.Equal(t, int64(2), remote.TotalQuantity())
}

func TestStoreOptimisticValuesSuperseded(t *testing.T) {
	mem := storage.NewMemory()
	bus := event.NewBus()
	ctx := context.Background()

	store := NewStore(mem, bus, zap.NewNop())
	store.Start(ctx)
	defer store.Close()

	store.SetLineCount(7)
	store.SetTotalCost(700)
	assert.Equal(t, 7, store.LineCount())

	mutator := NewMutator(mem, bus, zap.NewNop())
	_, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10}, 1, enum.CartModeAdd, store)
	require.NoError(t, err)

	// The broadcast-triggered resync recomputed from storage.
	assert.Equal(t, 1, store.LineCount())
	assert.InDelta(t, 10.0, store.TotalCost(), 1e-9)
}

func TestStoreLoadingGuard(t *testing.T) {
	store := NewStore(storage.NewMemory(), event.NewBus(), zap.NewNop())

	// An empty replacement before the first load finishes must not flash
	// zeroed aggregates over a previously displayed count.
	store.SetLineCount(3)
	store.SetLines(nil)
	assert.Equal(t, 3, store.LineCount())

	// A non-empty replacement recomputes even while loading.
	store.SetLines([]models.CartLine{{ProductID: "p1", UnitPrice: 2, Quantity: 2}})
	assert.Equal(t, 1, store.LineCount())
	assert.InDelta(t, 4.0, store.TotalCost(), 1e-9)

	// Once loaded, an empty replacement zeroes the aggregates.
	store.Resync(context.Background())
	store.SetLines(nil)
	assert.Equal(t, 0, store.LineCount())
}

func TestStoreSubscribe(t *testing.T) {
	mem := storage.NewMemory()
	bus := event.NewBus()
	ctx := context.Background()

	store := NewStore(mem, bus, zap.NewNop())
	store.Start(ctx)
	defer store.Close()

	var snapshots []Snapshot
	cancel := store.Subscribe(func(s Snapshot) { snapshots = append(snapshots, s) })

	mutator := NewMutator(mem, bus, zap.NewNop())
	_, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10}, 2, enum.CartModeAdd, nil)
	require.NoError(t, err)

	require.NotEmpty(t, snapshots)
	last := snapshots[len(snapshots)-1]
	assert.False(t, last.Loading)
	require.Len(t, last.Lines, 1)
	assert.Equal(t, int64(2), last.Summary.TotalQuantity)

	cancel()
	seen := len(snapshots)
	_, err = mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10}, 1, enum.CartModeAdd, nil)
	require.NoError(t, err)
	assert.Len(t, snapshots, seen)
}

func TestStoreLinesReturnsCopy(t *testing.T) {
	mem := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Write(ctx, Key, []byte(`[{"id":"p1","cost":10,"Quantity":2}]`)))

	store := NewStore(mem, event.NewBus(), zap.NewNop())
	store.Start(ctx)
	defer store.Close()

	lines := store.Lines()
	lines[0].Quantity = 99
	assert.Equal(t, int64(2), store.Lines()[0].Quantity)
}
