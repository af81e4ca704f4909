package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofalre.io/storefront/models"
)

func TestDecodeLines(t *testing.T) {
	t.Run("absent content is an empty cart", func(t *testing.T) {
		assert.Nil(t, decodeLines(nil))
		assert.Nil(t, decodeLines([]byte{}))
	})

	t.Run("corrupt content is an empty cart", func(t *testing.T) {
		assert.Nil(t, decodeLines([]byte("{not json")))
		assert.Nil(t, decodeLines([]byte(`{"id":"p1"}`)))
		assert.Nil(t, decodeLines([]byte(`"cart"`)))
	})

	t.Run("null is an empty cart", func(t *testing.T) {
		assert.Nil(t, decodeLines([]byte("null")))
	})

	t.Run("stored zero quantity counts as one", func(t *testing.T) {
		lines := decodeLines([]byte(`[{"id":"p1","cost":10}]`))
		require.Len(t, lines, 1)
		assert.Equal(t, int64(1), lines[0].Quantity)
	})

	t.Run("numeric ids decode", func(t *testing.T) {
		lines := decodeLines([]byte(`[{"id":42,"cost":5,"Quantity":2}]`))
		require.Len(t, lines, 1)
		assert.Equal(t, models.ProductID("42"), lines[0].ProductID)
	})
}

func TestEncodeLines(t *testing.T) {
	assert.Equal(t, "[]", string(encodeLines(nil)))
	assert.Equal(t, "[]", string(encodeLines([]models.CartLine{})))

	raw := encodeLines([]models.CartLine{{ProductID: "p1", UnitPrice: 10, Quantity: 2}})
	assert.JSONEq(t, `[{"id":"p1","cost":10,"Quantity":2}]`, string(raw))
}

func TestTotals(t *testing.T) {
	summary := Totals([]models.CartLine{
		{ProductID: "p1", UnitPrice: 10, Quantity: 2},
		{ProductID: "p2", UnitPrice: 3.5, Quantity: 1},
	})

	assert.Equal(t, 2, summary.LineCount)
	assert.Equal(t, int64(3), summary.TotalQuantity)
	assert.InDelta(t, 23.5, summary.TotalCost, 1e-9)
}

func TestTotalsEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Totals(nil))
}
