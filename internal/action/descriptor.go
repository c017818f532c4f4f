package action

import (
	"github.com/dshills/sheetcontrols/internal/dom"
)

// Handler runs the behavior of one phase of an action.
//
// Handlers are invoked synchronously by the dispatcher. A handler that
// needs to wait on slow work should wrap itself with Async; the dispatcher
// never waits on it.
type Handler func(ev *dom.Event, ctx *Context) error

// Surface is the application a control belongs to (a sheet, a panel).
type Surface interface {
	ID() string
}

// Context is built for a single dispatched interaction and discarded once
// the handler returns.
type Context struct {
	// Path is the resolved action path.
	Path string

	// Phase is the phase being dispatched.
	Phase Phase

	// Surface is the application that owns the control.
	Surface Surface

	// Root is the root element of the surface.
	Root *dom.Element

	// Item is the nearest item-grouping ancestor. Nil for surface-wide controls.
	Item *dom.Element

	// Primary is the item's primary element (the image). Nil for
	// surface-wide controls.
	Primary *dom.Element

	// Control is the element that carries the action path.
	Control *dom.Element

	// Subject is the stable identifier of the primary element, if known.
	Subject string

	// Reporter receives errors from work that outlives the handler call.
	Reporter func(error)
}

// Report forwards an error to the host's error channel.
func (c *Context) Report(err error) {
	if err == nil || c.Reporter == nil {
		return
	}
	c.Reporter(err)
}

// Descriptor maps phases to handlers for one action path. A descriptor
// need not implement every phase. The zero value implements none.
type Descriptor struct {
	path     string
	handlers [phaseCount]Handler
}

// Define starts an empty descriptor.
func Define() Descriptor {
	return Descriptor{}
}

// On returns a copy of d with h bound to phase p.
func (d Descriptor) On(p Phase, h Handler) Descriptor {
	if p.Valid() {
		d.handlers[p] = h
	}
	return d
}

// OnClick returns a copy of d with a click handler.
func (d Descriptor) OnClick(h Handler) Descriptor { return d.On(PhaseClick, h) }

// OnHover returns a copy of d with a hover handler.
func (d Descriptor) OnHover(h Handler) Descriptor { return d.On(PhaseHover, h) }

// OnChange returns a copy of d with a change handler.
func (d Descriptor) OnChange(h Handler) Descriptor { return d.On(PhaseChange, h) }

// Path returns the path the descriptor was registered under.
func (d Descriptor) Path() string { return d.path }

// Handler returns the handler for phase p.
func (d Descriptor) Handler(p Phase) (Handler, bool) {
	if !p.Valid() || d.handlers[p] == nil {
		return nil, false
	}
	return d.handlers[p], true
}

// Implements reports the phases that have a handler.
func (d Descriptor) Implements() []Phase {
	var out []Phase
	for _, p := range Phases {
		if d.handlers[p] != nil {
			out = append(out, p)
		}
	}
	return out
}

// Async wraps h so it runs on its own goroutine. The returned handler
// returns immediately; any error from h goes to Context.Report. There is
// no ordering between overlapping runs.
func Async(h Handler) Handler {
	return func(ev *dom.Event, ctx *Context) error {
		evCopy := *ev
		ctxCopy := *ctx
		go func() {
			if err := h(&evCopy, &ctxCopy); err != nil {
				ctxCopy.Report(err)
			}
		}()
		return nil
	}
}
