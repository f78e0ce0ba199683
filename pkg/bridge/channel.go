package bridge

import (
	"sync"
)

// Handler receives events of the name it subscribed to
type Handler func(Event)

// Channel is the contract the engine depends on
type Channel interface {
	Subscribe(name EventName, h Handler) (unsubscribe func())
	Publish(ev Event)
}

type subscription struct {
	id int
	h  Handler
}

// Bus is an in-process Channel. Publish calls handlers synchronously in
// subscription order on the publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[EventName][]subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[EventName][]subscription)}
}

// Subscribe registers h for name. The returned function is idempotent.
func (b *Bus) Subscribe(name EventName, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[name]
			for i, s := range list {
				if s.id == id {
					b.subs[name] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to the current subscribers of its name
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	b.mu.RLock()
	list := make([]subscription, len(b.subs[ev.EventName()]))
	copy(list, b.subs[ev.EventName()])
	b.mu.RUnlock()

	for _, s := range list {
		s.h(ev)
	}
}

// SubscriberCount reports how many handlers listen to name
func (b *Bus) SubscriberCount(name EventName) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}
