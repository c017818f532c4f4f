package dispatch

import (
	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/dom"
)

var (
	labelSelector = dom.MustCompile("label")
	inputSelector = dom.MustCompile("input, select, textarea")
)

func (d *Dispatcher) listener(container *dom.Element, phase action.Phase, r Resolver) dom.Listener {
	return func(ev *dom.Event) error {
		if phase == action.PhaseClick {
			ev.PreventDefault()
		}
		return d.handle(container, phase, r, ev)
	}
}

func (d *Dispatcher) handle(container *dom.Element, phase action.Phase, r Resolver, ev *dom.Event) error {
	target := effectiveTarget(container, ev.Target)

	control := findControl(container, target, phase, r.Delegate)
	if control == nil {
		return nil
	}
	path, _ := control.Attr(phase.Attribute())
	if path == "" {
		return nil
	}

	ctx := &action.Context{
		Path:     path,
		Phase:    phase,
		Surface:  r.Surface,
		Root:     r.Root,
		Control:  control,
		Reporter: r.Reporter,
	}
	if ctx.Root == nil {
		ctx.Root = container.Root()
	}

	if r.Scope == ScopeItem {
		item, primary, ok := resolveItem(container, control, r)
		if !ok {
			d.logger.Warn("control has no item ancestor, skipping dispatch",
				"path", path, "phase", phase, "control", control.Tag())
			return nil
		}
		ctx.Item, ctx.Primary = item, primary
		if primary != nil && r.Identify != nil {
			ctx.Subject = r.Identify(primary)
		}
	}

	desc, ok := d.registry.Resolve(path)
	if !ok {
		d.logger.Debug("no action registered", "path", path)
		return nil
	}
	handler, ok := desc.Handler(phase)
	if !ok {
		d.logger.Debug("action does not implement phase", "path", path, "phase", phase)
		return nil
	}
	return handler(ev, ctx)
}

// effectiveTarget substitutes a label's associated input for the label.
func effectiveTarget(container, target *dom.Element) *dom.Element {
	label := target.Closest(labelSelector)
	if label == nil || !within(container, label) {
		return target
	}
	if input := labelInput(label); input != nil {
		return input
	}
	return target
}

// labelInput finds the input a label stands for: the element named by its
// for attribute, else the input immediately preceding it, else the input
// immediately following it, else an input nested inside it.
func labelInput(label *dom.Element) *dom.Element {
	if id, ok := label.Attr("for"); ok && id != "" {
		if el := label.Root().ElementByID(id); el != nil {
			return el
		}
	}
	if prev := label.PreviousSibling(); prev != nil && inputSelector.Matches(prev) {
		return prev
	}
	if next := label.NextSibling(); next != nil && inputSelector.Matches(next) {
		return next
	}
	return label.Query(inputSelector)
}

// findControl walks from target up to container for the nearest element
// carrying the phase attribute.
func findControl(container, target *dom.Element, phase action.Phase, delegate *dom.Selector) *dom.Element {
	attr := phase.Attribute()
	for el := target; el != nil; el = el.Parent() {
		if el.HasAttr(attr) && (delegate == nil || delegate.Matches(el)) {
			return el
		}
		if el == container {
			break
		}
	}
	return nil
}

func resolveItem(container, control *dom.Element, r Resolver) (item, primary *dom.Element, ok bool) {
	if r.Primary != nil && r.Primary.Matches(control) {
		// The control is the primary element itself.
		item = control
		if r.Item != nil {
			if found := control.Closest(r.Item); found != nil && within(container, found) {
				item = found
			}
		}
		return item, control, true
	}

	if r.Item == nil {
		return nil, nil, false
	}
	item = control.Closest(r.Item)
	if item == nil || !within(container, item) {
		return nil, nil, false
	}
	if r.Primary != nil {
		primary = item.Query(r.Primary)
	}
	return item, primary, true
}

func within(container, el *dom.Element) bool {
	return container.Contains(el)
}
