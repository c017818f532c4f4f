// Package notify provides the process-wide named-event bus that carries
// configuration change broadcasts.
//
// Every listener subscribed to a name is invoked synchronously, in
// subscription order, each time that name is raised. Listeners are called
// outside the bus lock, so a listener may subscribe, unsubscribe or raise
// again without deadlocking.
package notify

import (
	"sync"

	"github.com/dshills/sheetcontrols/internal/config/merge"
)

// Change is the payload of a configuration broadcast.
type Change struct {
	// Name is the event name that was raised.
	Name string

	// Group is the setting group that changed.
	Group string

	// Origin identifies the component the broadcast is attributed to.
	Origin string

	// UpdateData is the group's full value after the change was committed.
	UpdateData any

	// Partial is the update that was applied.
	Partial any
}

// Observer is called when a subscribed name is raised.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id   uint64
	name string
	all  bool
	bus  *Bus
}

// Name returns the event name the subscription listens to.
func (s *Subscription) Name() string { return s.name }

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.bus != nil {
		s.bus.unsubscribe(s.name, s.all, s.id)
	}
}

type entry struct {
	id       uint64
	observer Observer
}

// Bus routes named events to their subscribers.
type Bus struct {
	mu     sync.RWMutex
	byName map[string][]entry
	all    []entry
	nextID uint64
	closed bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{byName: make(map[string][]entry)}
}

// Subscribe registers an observer for one event name.
func (b *Bus) Subscribe(name string, observer Observer) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.byName[name] = append(b.byName[name], entry{id: b.nextID, observer: observer})
	return &Subscription{id: b.nextID, name: name, bus: b}
}

// SubscribeAll registers an observer for every event. Catch-all observers
// run after the name's own subscribers.
func (b *Bus) SubscribeAll(observer Observer) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.all = append(b.all, entry{id: b.nextID, observer: observer})
	return &Subscription{id: b.nextID, all: true, bus: b}
}

// Raise delivers change to the subscribers of name. change.Name is set to name.
// Each observer receives its own copy of UpdateData and Partial.
func (b *Bus) Raise(name string, change Change) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	named := b.byName[name]
	observers := make([]Observer, 0, len(named)+len(b.all))
	for _, e := range named {
		observers = append(observers, e.observer)
	}
	for _, e := range b.all {
		observers = append(observers, e.observer)
	}
	b.mu.RUnlock()

	change.Name = name
	for _, obs := range observers {
		c := change
		c.UpdateData = merge.CloneValue(change.UpdateData)
		c.Partial = merge.CloneValue(change.Partial)
		obs(c)
	}
}

// Count returns the number of subscribers for name.
func (b *Bus) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byName[name])
}

// Close drops all subscribers; later Raise calls do nothing.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.byName = make(map[string][]entry)
	b.all = nil
}

func (b *Bus) unsubscribe(name string, all bool, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if all {
		b.all = without(b.all, id)
		return
	}
	entries := without(b.byName[name], id)
	if len(entries) == 0 {
		delete(b.byName, name)
		return
	}
	b.byName[name] = entries
}

func without(entries []entry, id uint64) []entry {
	for i, e := range entries {
		if e.id == id {
			out := make([]entry, 0, len(entries)-1)
			out = append(out, entries[:i]...)
			return append(out, entries[i+1:]...)
		}
	}
	return entries
}
