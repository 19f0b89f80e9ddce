package storage

import (
	"sort"
	"sync"
)

// Event names a class of data change. Events carry no payload; subscribers
// re-query what they display.
type Event string

// Change events raised by repository writes.
const (
	EventTransactionUpdated Event = "transaction_updated"
	EventBudgetUpdated      Event = "budget_updated"
	EventCategoryUpdated    Event = "category_updated"
)

// Listener is invoked synchronously when its event fires.
type Listener func()

// Subscription identifies a registered listener for Off.
type Subscription struct {
	event Event
	id    uint64
}

type eventBus struct {
	listeners map[Event]map[uint64]Listener
	mu        sync.Mutex
	nextID    uint64
}

func newEventBus() *eventBus {
	return &eventBus{listeners: make(map[Event]map[uint64]Listener)}
}

func (b *eventBus) on(event Event, fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.listeners[event] == nil {
		b.listeners[event] = make(map[uint64]Listener)
	}
	b.listeners[event][b.nextID] = fn
	return Subscription{event: event, id: b.nextID}
}

func (b *eventBus) off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners[sub.event], sub.id)
}

func (b *eventBus) emit(event Event) {
	b.mu.Lock()
	ids := make([]uint64, 0, len(b.listeners[event]))
	for id := range b.listeners[event] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.listeners[event][id])
	}
	b.mu.Unlock()

	// Listeners run without the lock so they may subscribe or query.
	for _, fn := range fns {
		fn()
	}
}
