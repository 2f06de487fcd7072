// Package event provides the synchronous publish/subscribe bus through
// which the buffer notifies the surrounding view layer. The buffer holds no
// back-reference to observers; it only publishes to the bus.
package event

import "sync"

// Handler processes a published event. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Handler func(event any)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	id  uint64
	bus *Bus
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.bus != nil {
		s.bus.remove(s.id)
	}
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous event bus.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all published events.
func (b *Bus) Subscribe(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, handler: h})
	return Subscription{id: b.nextID, bus: b}
}

// Publish delivers the event to every subscriber before returning.
func (b *Bus) Publish(event any) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// SubscriberCount returns the number of registered handlers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
