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

type recordedSink struct {
	lineCount int
	totalCost float64
}

func (r *recordedSink) SetLineCount(count int)    { r.lineCount = count }
func (r *recordedSink) SetTotalCost(cost float64) { r.totalCost = cost }

func newTestMutator() (*Mutator, *storage.Memory, *event.Bus) {
	mem := storage.NewMemory()
	bus := event.NewBus()
	return NewMutator(mem, bus, zap.NewNop()), mem, bus
}

func persisted(t *testing.T, mem *storage.Memory) []models.CartLine {
	t.Helper()
	raw, err := mem.Read(context.Background(), Key)
	require.NoError(t, err)
	return decodeLines(raw)
}

func TestApplyAddsNewLine(t *testing.T) {
	mutator, mem, _ := newTestMutator()
	ctx := context.Background()

	lines, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10}, 0, enum.CartModeAdd, nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), lines[0].Quantity)

	assert.Equal(t, lines, persisted(t, mem))
}

func TestApplyMergesByIdentity(t *testing.T) {
	mutator, _, _ := newTestMutator()
	ctx := context.Background()
	line := models.CartLine{ProductID: "p1", Color: "red", Size: "M", UnitPrice: 10}

	_, err := mutator.Apply(ctx, line, 0, enum.CartModeAdd, nil)
	require.NoError(t, err)
	lines, err := mutator.Apply(ctx, line, 0, enum.CartModeAdd, nil)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].Quantity)
}

func TestApplyVariantsStaySeparate(t *testing.T) {
	mutator, _, _ := newTestMutator()
	ctx := context.Background()

	_, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", Color: "red", UnitPrice: 10}, 0, enum.CartModeAdd, nil)
	require.NoError(t, err)
	lines, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", Color: "blue", UnitPrice: 10}, 0, enum.CartModeAdd, nil)
	require.NoError(t, err)

	assert.Len(t, lines, 2)
}

func TestApplyQuantityPrecedence(t *testing.T) {
	mutator, _, _ := newTestMutator()
	ctx := context.Background()

	// Explicit delta wins over the line's own quantity.
	lines, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", Quantity: 5}, 3, enum.CartModeAdd, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), lines[0].Quantity)

	// Without a delta the line's quantity applies.
	lines, err = mutator.Apply(ctx, models.CartLine{ProductID: "p2", Quantity: 4}, 0, enum.CartModeAdd, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), lines[1].Quantity)
}

func TestApplyNegativeDeltaRemovesAtZero(t *testing.T) {
	mutator, mem, _ := newTestMutator()
	ctx := context.Background()
	line := models.CartLine{ProductID: "p1", UnitPrice: 10}

	_, err := mutator.Apply(ctx, line, 2, enum.CartModeAdd, nil)
	require.NoError(t, err)

	lines, err := mutator.Apply(ctx, line, -1, enum.CartModeAdd, nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), lines[0].Quantity)

	lines, err = mutator.Apply(ctx, line, -1, enum.CartModeAdd, nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Empty(t, persisted(t, mem))
}

func TestApplyNewLineNeverNonPositive(t *testing.T) {
	mutator, _, _ := newTestMutator()

	lines, err := mutator.Apply(context.Background(), models.CartLine{ProductID: "p1"}, -3, enum.CartModeAdd, nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), lines[0].Quantity)
}

func TestApplyMissingProductID(t *testing.T) {
	mutator, mem, _ := newTestMutator()

	_, err := mutator.Apply(context.Background(), models.CartLine{UnitPrice: 10}, 1, enum.CartModeAdd, nil)
	assert.ErrorIs(t, err, ErrMissingProductID)

	// The cart was never touched.
	_, err = mem.Read(context.Background(), Key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestApplyEmptyMode(t *testing.T) {
	mutator, mem, _ := newTestMutator()
	ctx := context.Background()

	_, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10}, 2, enum.CartModeAdd, nil)
	require.NoError(t, err)

	sink := &recordedSink{lineCount: 99, totalCost: 99}
	lines, err := mutator.Apply(ctx, models.CartLine{}, 0, enum.CartModeEmpty, sink)
	require.NoError(t, err)

	assert.Empty(t, lines)
	assert.Equal(t, 0, sink.lineCount)
	assert.Zero(t, sink.totalCost)

	raw, err := mem.Read(ctx, Key)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestApplyRecoversFromCorruptStorage(t *testing.T) {
	mutator, mem, _ := newTestMutator()
	ctx := context.Background()

	require.NoError(t, mem.Write(ctx, Key, []byte("{broken")))

	lines, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10}, 1, enum.CartModeAdd, nil)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestApplyReportsAndBroadcasts(t *testing.T) {
	mutator, _, bus := newTestMutator()

	published := 0
	cancel := bus.Subscribe(event.TopicCartUpdated, func() { published++ })
	defer cancel()

	sink := &recordedSink{}
	_, err := mutator.Apply(context.Background(), models.CartLine{ProductID: "p1", UnitPrice: 12.5}, 2, enum.CartModeAdd, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, published)
	assert.Equal(t, 1, sink.lineCount)
	assert.InDelta(t, 25.0, sink.totalCost, 1e-9)
}

func TestApplyScenario(t *testing.T) {
	mutator, _, _ := newTestMutator()
	ctx := context.Background()

	check := func(lines []models.CartLine, count int, cost float64) {
		t.Helper()
		summary := Totals(lines)
		assert.Equal(t, count, summary.LineCount)
		assert.InDelta(t, cost, summary.TotalCost, 1e-9)
	}

	lines, err := mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10, Quantity: 1}, 0, enum.CartModeAdd, nil)
	require.NoError(t, err)
	check(lines, 1, 10)

	lines, err = mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10, Quantity: 2}, 0, enum.CartModeAdd, nil)
	require.NoError(t, err)
	check(lines, 1, 30)

	lines, err = mutator.Apply(ctx, models.CartLine{ProductID: "p2", Color: "red", UnitPrice: 5, Quantity: 1}, 0, enum.CartModeAdd, nil)
	require.NoError(t, err)
	check(lines, 2, 35)

	lines, err = mutator.Apply(ctx, models.CartLine{ProductID: "p1", UnitPrice: 10}, -3, enum.CartModeAdd, nil)
	require.NoError(t, err)
	check(lines, 1, 5)

	lines, err = mutator.Apply(ctx, models.CartLine{}, 0, enum.CartModeEmpty, nil)
	require.NoError(t, err)
	check(lines, 0, 0)
}
