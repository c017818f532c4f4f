// Package dispatch binds delegated listeners on container elements and
// routes interactions to registered actions.
//
// One listener is installed per (container, phase) pair. When it fires the
// dispatcher finds the control that carries the phase's action attribute,
// resolves the item the control belongs to, looks the path up in the
// action registry and invokes the phase handler synchronously with a fresh
// action.Context. Attaching the same pair again replaces the earlier
// listener, so a control fires its action at most once per interaction no
// matter how often its surface is re-bound.
package dispatch

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/dom"
)

// Errors returned by Attach.
var (
	ErrNilContainer = errors.New("dispatch: nil container")
	ErrInvalidPhase = errors.New("dispatch: invalid phase")
)

// Logger is the logging surface the dispatcher needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Scope says whether controls under a container act on an item or on the
// whole surface.
type Scope uint8

const (
	// ScopeItem controls belong to the nearest item-grouping ancestor.
	ScopeItem Scope = iota
	// ScopeSurface controls act on the surface as a whole.
	ScopeSurface
)

// String returns the scope name.
func (s Scope) String() string {
	if s == ScopeSurface {
		return "surface"
	}
	return "item"
}

// Resolver describes how controls under a container map to items.
type Resolver struct {
	// Surface is the application that owns the container.
	Surface action.Surface

	// Root is the surface's root element. Defaults to the container's root.
	Root *dom.Element

	// Scope selects item or surface-wide resolution.
	Scope Scope

	// Item matches item-grouping elements. Required for ScopeItem.
	Item *dom.Selector

	// Primary matches an item's primary element (its image).
	Primary *dom.Selector

	// Delegate, when set, restricts which controls are eligible.
	Delegate *dom.Selector

	// Identify returns the stable identifier of a primary element.
	Identify func(*dom.Element) string

	// Reporter receives errors from handlers that outlive the dispatch.
	Reporter func(error)
}

// Binding is the token for one attached (container, phase) listener.
type Binding struct {
	id        uuid.UUID
	container *dom.Element
	phase     action.Phase
	listeners []dom.ListenerID
	released  bool
}

// ID returns the binding's unique identifier.
func (b *Binding) ID() uuid.UUID { return b.id }

// Container returns the element the listener is installed on.
func (b *Binding) Container() *dom.Element { return b.container }

// Phase returns the bound phase.
func (b *Binding) Phase() action.Phase { return b.phase }

// Active reports whether the binding's listeners are still installed.
func (b *Binding) Active() bool { return !b.released }

type bindingKey struct {
	container *dom.Element
	phase     action.Phase
}

// Dispatcher routes delegated events to actions.
type Dispatcher struct {
	registry *action.Registry
	logger   Logger

	mu       sync.Mutex
	bindings map[bindingKey]*Binding
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a dispatcher over registry.
func New(registry *action.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   nopLogger{},
		bindings: make(map[bindingKey]*Binding),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attach installs the listener for phase on container, replacing any
// earlier binding for the same pair.
func (d *Dispatcher) Attach(container *dom.Element, phase action.Phase, r Resolver) (*Binding, error) {
	if container == nil {
		return nil, ErrNilContainer
	}
	if !phase.Valid() {
		return nil, ErrInvalidPhase
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := bindingKey{container: container, phase: phase}
	if prev, ok := d.bindings[key]; ok {
		d.release(prev)
	}

	b := &Binding{id: uuid.New(), container: container, phase: phase}
	listener := d.listener(container, phase, r)
	for _, eventType := range phase.Events() {
		b.listeners = append(b.listeners, container.AddEventListener(eventType, listener))
	}
	d.bindings[key] = b

	d.logger.Debug("listener attached", "phase", phase, "binding", b.id, "scope", r.Scope)
	return b, nil
}

// Detach removes the binding for (container, phase) and reports whether
// one existed.
func (d *Dispatcher) Detach(container *dom.Element, phase action.Phase) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := bindingKey{container: container, phase: phase}
	b, ok := d.bindings[key]
	if !ok {
		return false
	}
	d.release(b)
	return true
}

// Release removes b if it is still the current binding for its pair.
// Releasing a binding that was already replaced or released does nothing.
func (d *Dispatcher) Release(b *Binding) bool {
	if b == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	key := bindingKey{container: b.container, phase: b.phase}
	if d.bindings[key] != b {
		return false
	}
	d.release(b)
	return true
}

// DetachAll removes every binding on container and returns how many there were.
func (d *Dispatcher) DetachAll(container *dom.Element) int {
	n := 0
	for _, p := range action.Phases {
		if d.Detach(container, p) {
			n++
		}
	}
	return n
}

// Lookup returns the current binding for (container, phase).
func (d *Dispatcher) Lookup(container *dom.Element, phase action.Phase) (*Binding, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.bindings[bindingKey{container: container, phase: phase}]
	return b, ok
}

// Len returns the number of active bindings.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bindings)
}

// release must be called with d.mu held.
func (d *Dispatcher) release(b *Binding) {
	for _, id := range b.listeners {
		b.container.RemoveEventListener(id)
	}
	b.released = true
	delete(d.bindings, bindingKey{container: b.container, phase: b.phase})
}
