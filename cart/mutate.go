package cart

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gofalre.io/storefront/event"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/storage"
)

// ErrMissingProductID rejects a mutation whose line carries no product
// identity. The cart itself is left untouched.
var ErrMissingProductID = errors.New("cart: line has no product id")

// Sink receives the aggregates a mutation computed, so the caller's view can
// update immediately instead of waiting for the resync the broadcast will
// trigger. The resync always follows and supersedes these values.
type Sink interface {
	SetLineCount(count int)
	SetTotalCost(cost float64)
}

// Mutator applies one change at a time to the persisted cart: merge a line
// in by identity, adjust its quantity, or drop the whole collection. Every
// successful pass ends with a cart.updated broadcast.
type Mutator struct {
	store  storage.Storage
	bus    *event.Bus
	logger *zap.Logger
}

func NewMutator(store storage.Storage, bus *event.Bus, logger *zap.Logger) *Mutator {
	return &Mutator{
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// Apply mutates the cart and returns the resulting collection.
//
// In add mode the candidate line merges with an existing line of the same
// (product, color, size) identity. The applied quantity is delta when
// non-zero, otherwise the line's own quantity, otherwise 1. A merge that
// lands at or below zero removes the line; a new line is never created with
// a non-positive quantity. Empty mode rewrites the cart to [] regardless of
// the line argument.
//
// Storage failures degrade — an unreadable cart counts as empty and a failed
// write is logged and dropped — so a cart operation can never abort the user
// action that triggered it.
func (m *Mutator) Apply(ctx context.Context, line models.CartLine, delta int64, mode enum.CartMode, sink Sink) ([]models.CartLine, error) {
	if mode == enum.CartModeEmpty {
		if err := m.store.Write(ctx, Key, encodeLines(nil)); err != nil {
			m.logger.Warn("Failed to persist emptied cart", zap.Error(err))
		}
		m.report(Summary{}, sink)
		m.bus.Publish(event.TopicCartUpdated)
		return []models.CartLine{}, nil
	}

	if line.ProductID == "" {
		return nil, ErrMissingProductID
	}

	raw, err := m.store.Read(ctx, Key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		m.logger.Warn("Failed to read cart, treating as empty", zap.Error(err))
	}
	lines := decodeLines(raw)

	quantity := delta
	if quantity == 0 {
		quantity = line.Quantity
		if quantity == 0 {
			quantity = 1
		}
	}

	index := -1
	key := line.Key()
	for i := range lines {
		if lines[i].Key() == key {
			index = i
			break
		}
	}

	if index != -1 {
		lines[index].Quantity += quantity
		if lines[index].Quantity <= 0 {
			lines = append(lines[:index], lines[index+1:]...)
		}
	} else {
		added := line
		added.Quantity = quantity
		if added.Quantity <= 0 {
			added.Quantity = 1
		}
		lines = append(lines, added)
	}

	if err = m.store.Write(ctx, Key, encodeLines(lines)); err != nil {
		m.logger.Warn("Failed to persist cart, write dropped", zap.Error(err))
	}

	m.report(Totals(lines), sink)
	m.bus.Publish(event.TopicCartUpdated)

	return lines, nil
}

func (m *Mutator) report(summary Summary, sink Sink) {
	if sink == nil {
		return
	}
	sink.SetLineCount(summary.LineCount)
	sink.SetTotalCost(summary.TotalCost)
}
