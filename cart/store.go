package cart

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"gofalre.io/storefront/event"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/storage"
)

// Snapshot is the consistent view delivered to observers: the materialized
// lines, their aggregates, and whether the initial load is still running.
type Snapshot struct {
	Lines   []models.CartLine
	Summary Summary
	Loading bool
}

var _ Sink = (*Store)(nil)

// Store is the process-wide source of the current cart. It keeps a
// materialized copy of the persisted collection plus its aggregates, and
// resynchronizes through one path no matter which trigger fired: the
// in-process cart.updated broadcast, the storage layer's external change
// notification, or an explicit Resync call.
type Store struct {
	store  storage.Storage
	bus    *event.Bus
	logger *zap.Logger

	mu      sync.Mutex
	lines   []models.CartLine
	summary Summary
	loading bool
	loaded  bool

	subs   map[int]func(Snapshot)
	nextID int

	cancelBus     func()
	cancelStorage func()
}

func NewStore(store storage.Storage, bus *event.Bus, logger *zap.Logger) *Store {
	return &Store{
		store:   store,
		bus:     bus,
		logger:  logger,
		loading: true,
		subs:    make(map[int]func(Snapshot)),
	}
}

// Start runs the initial synchronization and wires both ongoing triggers to
// the same resync path. If external change notifications are unavailable the
// store still works within its own process; it logs and carries on.
func (s *Store) Start(ctx context.Context) {
	s.Resync(ctx)

	s.cancelBus = s.bus.Subscribe(event.TopicCartUpdated, func() {
		s.Resync(context.Background())
	})

	cancel, err := s.store.OnChange(Key, func() {
		s.Resync(context.Background())
	})
	if err != nil {
		s.logger.Warn("External cart notifications unavailable", zap.Error(err))
		return
	}
	s.cancelStorage = cancel
}

// Close detaches the store from both notification channels.
func (s *Store) Close() {
	if s.cancelBus != nil {
		s.cancelBus()
		s.cancelBus = nil
	}
	if s.cancelStorage != nil {
		s.cancelStorage()
		s.cancelStorage = nil
	}
}

// Resync re-reads the persisted cart, replaces the materialized lines and
// recomputes every aggregate. An unreadable or corrupt entry resolves to an
// empty cart.
func (s *Store) Resync(ctx context.Context) {
	raw, err := s.store.Read(ctx, Key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("Failed to read cart during resync", zap.Error(err))
	}
	lines := decodeLines(raw)

	s.mu.Lock()
	s.lines = lines
	s.summary = Totals(lines)
	s.loaded = true
	s.loading = false
	snapshot := s.snapshotLocked()
	fns := s.subscribersLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// SetLines replaces the materialized collection directly. Aggregates are
// recomputed from the new slice — except while the initial load has not yet
// finished and the slice is empty, where recomputing would flash a zero-item
// cart before real data arrives.
func (s *Store) SetLines(lines []models.CartLine) {
	s.mu.Lock()
	s.lines = lines
	if len(lines) == 0 && !s.loaded {
		s.mu.Unlock()
		return
	}
	s.summary = Totals(lines)
	snapshot := s.snapshotLocked()
	fns := s.subscribersLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// SetLineCount installs an optimistic count ahead of the resync that the
// mutation's broadcast will trigger. The resync's recomputation supersedes it.
func (s *Store) SetLineCount(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.LineCount = count
}

// SetTotalCost installs an optimistic total ahead of the next resync.
func (s *Store) SetTotalCost(cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.TotalCost = cost
}

// Subscribe registers an observer for every subsequent state change and
// returns a cancel that removes it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Lines returns a copy of the materialized collection.
func (s *Store) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) LineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary.LineCount
}

func (s *Store) TotalQuantity() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary.TotalQuantity
}

func (s *Store) TotalCost() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary.TotalCost
}

// Loading reports whether the initial synchronization is still in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Summary returns the current aggregates.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *Store) snapshotLocked() Snapshot {
	lines := make([]models.CartLine, len(s.lines))
	copy(lines, s.lines)
	return Snapshot{
		Lines:   lines,
		Summary: s.summary,
		Loading: s.loading,
	}
}

func (s *Store) subscribersLocked() []func(Snapshot) {
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}
