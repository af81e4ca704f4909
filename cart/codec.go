// Package cart owns the persisted shopping cart: one JSON array of lines
// under a single storage key, mutated in place and re-read by every observer
// whenever a change notification arrives.
package cart

import (
	"encoding/json"

	"gofalre.io/storefront/models"
)

// Key is the storage key the cart lives under.
const Key = "cart"

// Summary holds the derived aggregates. They are never persisted; every
// value is recomputed from the full line collection.
type Summary struct {
	LineCount     int
	TotalQuantity int64
	TotalCost     float64
}

// Totals computes the aggregates for a line collection.
func Totals(lines []models.CartLine) Summary {
	s := Summary{LineCount: len(lines)}
	for _, line := range lines {
		s.TotalQuantity += line.Quantity
		s.TotalCost += line.Subtotal()
	}
	return s
}

// decodeLines is the single deserialization point for persisted cart content.
// Absent, corrupt or non-array content decodes to an empty cart; a stored
// quantity of zero counts as one. It never fails.
func decodeLines(raw []byte) []models.CartLine {
	if len(raw) == 0 {
		return nil
	}

	var lines []models.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil
	}
	for i := range lines {
		if lines[i].Quantity == 0 {
			lines[i].Quantity = 1
		}
	}
	return lines
}

// encodeLines serializes the collection; an empty cart persists as [], never
// as null.
func encodeLines(lines []models.CartLine) []byte {
	if lines == nil {
		lines = []models.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		// Lines contain only plain scalar fields; this cannot happen.
		return []byte("[]")
	}
	return raw
}
