// Package pubsub is the in-process publish/subscribe primitive the
// Device Relay uses to fan device-origin events out to the Client
// Proxy and any other interested subscriber.
package pubsub

import (
	"sync"

	"github.com/brewlink/relay/pkg/models"
)

// Handler receives a published message. Publish invokes every handler
// synchronously and in publication order on the publishing goroutine —
// a handler must not block, and if it needs to do I/O it should hop to
// its own goroutine.
type Handler func(models.Message)

// Bus is an in-process broadcaster; the number of subscribers is not
// limited. The zero value is not usable; construct with NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers handler and returns a function that removes it.
// Safe to call unsubscribe more than once.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish invokes every current subscriber with msg, in registration
// order. A snapshot of the subscriber set is taken under lock so a
// handler that unsubscribes itself (or another handler) mid-publish
// cannot deadlock or skip unrelated subscribers.
func (b *Bus) Publish(msg models.Message) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))

	for id := 0; id < b.nextID; id++ {
		if h, ok := b.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.handlers)
}
