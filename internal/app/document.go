package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dshills/sheetcontrols/internal/dom"
	"github.com/dshills/sheetcontrols/internal/sheet"
)

// Open parses an HTML document, locates its sheet and injects controls.
func (app *Application) Open(r io.Reader) (*sheet.Sheet, sheet.Result, error) {
	if app.closed.Load() {
		return nil, sheet.Result{}, ErrClosed
	}
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, sheet.Result{}, &OperationError{Op: "open", Err: err}
	}
	root := sheet.Find(doc)
	if root == doc || root.ID() == "" {
		return nil, sheet.Result{}, &OperationError{Op: "open", Err: ErrNoSheet}
	}

	s := sheet.New(root.ID(), sheet.DocumentNameFromClasses(root), root)
	res, err := app.Apply(s)
	return s, res, err
}

// OpenFile opens the document at path.
func (app *Application) OpenFile(path string) (*sheet.Sheet, sheet.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sheet.Result{}, &OperationError{Op: "open", Target: path, Err: err}
	}
	defer f.Close()
	return app.Open(f)
}

// Apply injects controls into s and tracks it. Applying a sheet that is
// already open rebinds it in place.
func (app *Application) Apply(s *sheet.Sheet) (sheet.Result, error) {
	res, err := app.injector.Apply(s)
	if err != nil {
		return res, &OperationError{Op: "apply", Target: s.ID(), Err: err}
	}
	app.metrics.RecordSheet(res.Applied)

	app.mu.Lock()
	if _, ok := app.sheets[s.ID()]; !ok {
		app.order = append(app.order, s.ID())
	}
	app.sheets[s.ID()] = s
	app.mu.Unlock()
	return res, nil
}

// Close forgets the sheet with the given id and releases its bindings.
func (app *Application) Close(id string) error {
	app.mu.Lock()
	_, ok := app.sheets[id]
	delete(app.sheets, id)
	for i, v := range app.order {
		if v == id {
			app.order = append(app.order[:i], app.order[i+1:]...)
			break
		}
	}
	app.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, id)
	}
	app.injector.Release(id)
	return nil
}

// Sheet returns an open sheet.
func (app *Application) Sheet(id string) (*sheet.Sheet, bool) {
	app.mu.Lock()
	defer app.mu.Unlock()
	s, ok := app.sheets[id]
	return s, ok
}

// Sheets returns the ids of open sheets in the order they were opened.
func (app *Application) Sheets() []string {
	app.mu.Lock()
	defer app.mu.Unlock()
	out := make([]string, len(app.order))
	copy(out, app.order)
	return out
}

// Render serializes an open sheet.
func (app *Application) Render(id string) (string, error) {
	s, ok := app.Sheet(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSheetNotFound, id)
	}
	return dom.Render(s.Root())
}

// Interaction kinds.
const (
	KindClick  = "click"
	KindHover  = "hover"
	KindEnter  = "enter"
	KindLeave  = "leave"
	KindChange = "change"
)

// Interaction is a simulated user interaction with a sheet element.
type Interaction struct {
	Kind     string
	Selector string
	Value    string
}

func (i Interaction) String() string {
	if i.Kind == KindChange {
		return i.Kind + ":" + i.Selector + "=" + i.Value
	}
	return i.Kind + ":" + i.Selector
}

// ParseInteraction parses "kind:selector", or "change:selector=value".
func ParseInteraction(s string) (Interaction, error) {
	kind, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || rest == "" {
		return Interaction{}, fmt.Errorf("%w: %q", ErrInvalidInteraction, s)
	}
	in := Interaction{Kind: strings.ToLower(kind), Selector: rest}
	switch in.Kind {
	case KindClick, KindHover, KindEnter, KindLeave:
	case KindChange:
		sel, value, ok := strings.Cut(rest, "=")
		if !ok || sel == "" {
			return Interaction{}, fmt.Errorf("%w: change needs selector=value: %q", ErrInvalidInteraction, s)
		}
		in.Selector, in.Value = sel, value
	default:
		return Interaction{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInteraction, kind)
	}
	if _, err := dom.Compile(in.Selector); err != nil {
		return Interaction{}, fmt.Errorf("%w: %v", ErrInvalidInteraction, err)
	}
	return in, nil
}

// Interact performs in on the first element of the sheet matching its
// selector. Handler errors are returned.
func (app *Application) Interact(id string, in Interaction) error {
	if app.closed.Load() {
		return ErrClosed
	}
	s, ok := app.Sheet(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, id)
	}
	sel, err := dom.Compile(in.Selector)
	if err != nil {
		return &OperationError{Op: "interact", Target: in.String(), Err: err}
	}
	target := s.Root().Query(sel)
	if target == nil {
		return &OperationError{Op: "interact", Target: in.String(), Err: ErrNoTarget}
	}

	start := time.Now()
	switch in.Kind {
	case KindClick:
		_, err = dom.Click(target)
	case KindHover:
		err = dom.Hover(target)
	case KindEnter:
		err = dom.Dispatch(target, dom.NewEvent(dom.EventMouseEnter))
	case KindLeave:
		err = dom.Dispatch(target, dom.NewEvent(dom.EventMouseLeave))
	case KindChange:
		err = dom.Change(target, in.Value)
	default:
		err = fmt.Errorf("%w: unknown kind %q", ErrInvalidInteraction, in.Kind)
	}
	app.metrics.RecordInteraction(time.Since(start), err != nil)
	if err != nil {
		return &OperationError{Op: "interact", Target: in.String(), Err: err}
	}
	app.logger.Debug("interaction", "sheet", id, "interaction", in.String())
	return nil
}
