package dom

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
)

// Native event types understood by the control layer.
const (
	EventClick      = "click"
	EventMouseEnter = "mouseenter"
	EventMouseLeave = "mouseleave"
	EventChange     = "change"
)

// Event is a native interaction event travelling from its target up to the
// document root.
type Event struct {
	// Type is the native event type (click, mouseenter, ...).
	Type string

	// Target is the element the event originated on.
	Target *Element

	// CurrentTarget is the element whose listener is running.
	CurrentTarget *Element

	defaultPrevented bool
	stopped          bool
}

// NewEvent creates an event of the given type.
func NewEvent(eventType string) *Event {
	return &Event{Type: eventType}
}

// PreventDefault marks the host's default behavior as suppressed.
func (ev *Event) PreventDefault() { ev.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (ev *Event) DefaultPrevented() bool { return ev.defaultPrevented }

// StopPropagation prevents the event from reaching further ancestors.
// Listeners on the current element still run.
func (ev *Event) StopPropagation() { ev.stopped = true }

// Listener handles an event. A returned error is reported to the caller of
// Dispatch, not swallowed.
type Listener func(ev *Event) error

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

var nextListenerID atomic.Uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

type listenerSet struct {
	mu     sync.RWMutex
	byType map[string][]listenerEntry
}

// AddEventListener registers fn for eventType on e and returns an ID that
// RemoveEventListener accepts. Listeners run in registration order.
func (e *Element) AddEventListener(eventType string, fn Listener) ListenerID {
	if e.listeners == nil {
		e.listeners = &listenerSet{byType: make(map[string][]listenerEntry)}
	}
	id := ListenerID(nextListenerID.Add(1))

	e.listeners.mu.Lock()
	defer e.listeners.mu.Unlock()
	e.listeners.byType[eventType] = append(e.listeners.byType[eventType], listenerEntry{id: id, fn: fn})
	return id
}

// RemoveEventListener removes a listener by ID and reports whether it was found.
func (e *Element) RemoveEventListener(id ListenerID) bool {
	if e.listeners == nil {
		return false
	}
	e.listeners.mu.Lock()
	defer e.listeners.mu.Unlock()

	for typ, entries := range e.listeners.byType {
		for i, entry := range entries {
			if entry.id == id {
				e.listeners.byType[typ] = append(entries[:i:i], entries[i+1:]...)
				if len(e.listeners.byType[typ]) == 0 {
					delete(e.listeners.byType, typ)
				}
				return true
			}
		}
	}
	return false
}

// ListenerCount returns the number of listeners registered on e for eventType.
func (e *Element) ListenerCount(eventType string) int {
	if e.listeners == nil {
		return 0
	}
	e.listeners.mu.RLock()
	defer e.listeners.mu.RUnlock()
	return len(e.listeners.byType[eventType])
}

func (e *Element) snapshot(eventType string) []listenerEntry {
	if e.listeners == nil {
		return nil
	}
	e.listeners.mu.RLock()
	defer e.listeners.mu.RUnlock()
	entries := e.listeners.byType[eventType]
	out := make([]listenerEntry, len(entries))
	copy(out, entries)
	return out
}

// Dispatch delivers ev to target and then to each ancestor. Errors returned
// by listeners are joined and returned.
func Dispatch(target *Element, ev *Event) error {
	if target == nil || ev == nil {
		return nil
	}
	ev.Target = target

	var errs []error
	for cur := target; cur != nil; cur = cur.parent {
		ev.CurrentTarget = cur
		for _, entry := range cur.snapshot(ev.Type) {
			if err := entry.fn(ev); err != nil {
				errs = append(errs, err)
			}
		}
		if ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil
	return errors.Join(errs...)
}

// Click dispatches a click on el.
func Click(el *Element) (*Event, error) {
	ev := NewEvent(EventClick)
	return ev, Dispatch(el, ev)
}

// Hover dispatches mouseenter followed by mouseleave on el.
func Hover(el *Element) error {
	return errors.Join(
		Dispatch(el, NewEvent(EventMouseEnter)),
		Dispatch(el, NewEvent(EventMouseLeave)),
	)
}

// Change sets el's value and dispatches a change event. A checkbox flips
// its checked attribute; a radio becomes checked and unchecks the other
// radios of its name.
func Change(el *Element, value string) error {
	el.Value = value
	if el.Tag() == "input" {
		kind, _ := el.Attr("type")
		switch strings.ToLower(kind) {
		case "checkbox":
			if el.HasAttr("checked") {
				el.RemoveAttr("checked")
			} else {
				el.SetAttr("checked", "")
			}
		case "radio":
			checkRadio(el)
		}
	}
	return Dispatch(el, NewEvent(EventChange))
}

func checkRadio(el *Element) {
	name, _ := el.Attr("name")
	if name != "" {
		el.Root().Walk(func(other *Element) bool {
			if other != el && other.Tag() == "input" {
				kind, _ := other.Attr("type")
				if n, _ := other.Attr("name"); n == name && strings.EqualFold(kind, "radio") {
					other.RemoveAttr("checked")
				}
			}
			return true
		})
	}
	el.SetAttr("checked", "")
}
