package storage

import (
	"context"
	"sync"
)

var _ Storage = (*Memory)(nil)

// Memory is an in-process Storage. Two stores sharing one Memory see each
// other's writes through OnChange, which makes it the reference driver for
// tests and for single-process use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
	watches map[string]map[int]func()
	nextID  int
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string][]byte),
		watches: make(map[string]map[int]func()),
	}
}

func (m *Memory) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *Memory) Write(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	fns := m.watchers(key)
	m.mu.Unlock()

	// Outside the lock: a watcher's first move is to re-read the key.
	for _, fn := range fns {
		fn()
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	fns := m.watchers(key)
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (m *Memory) OnChange(key string, fn func()) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watches[key] == nil {
		m.watches[key] = make(map[int]func())
	}
	id := m.nextID
	m.nextID++
	m.watches[key][id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.watches[key], id)
	}, nil
}

func (m *Memory) Close() error {
	return nil
}

// watchers snapshots the callbacks for key; callers hold the lock.
func (m *Memory) watchers(key string) []func() {
	fns := make([]func(), 0, len(m.watches[key]))
	for _, fn := range m.watches[key] {
		fns = append(fns, fn)
	}
	return fns
}
