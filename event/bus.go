// Package event carries the storefront's change notifications: an in-process
// bus for same-process observers, and a persisted log that keeps payment
// events from being handled twice.
package event

import "sync"

// TopicCartUpdated is broadcast after every successful cart mutation. It has
// no payload; subscribers re-read the persisted cart.
const TopicCartUpdated = "cart.updated"

// Bus is a synchronous in-process broadcast channel. Publish runs every
// subscriber before returning, which preserves the mutate → persist → notify
// ordering the cart store relies on.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]map[int]func()
	nextID int
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]map[int]func()),
	}
}

// Subscribe registers fn for topic and returns a cancel that removes it.
func (b *Bus) Subscribe(topic string, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func())
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish invokes every subscriber of topic. Subscribers run outside the
// bus lock so they may publish or subscribe themselves.
func (b *Bus) Publish(topic string) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs[topic]))
	for _, fn := range b.subs[topic] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
