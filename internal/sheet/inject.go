package sheet

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/binder"
	"github.com/dshills/sheetcontrols/internal/config"
	"github.com/dshills/sheetcontrols/internal/config/notify"
	"github.com/dshills/sheetcontrols/internal/config/schema"
	"github.com/dshills/sheetcontrols/internal/dispatch"
	"github.com/dshills/sheetcontrols/internal/dom"
	"github.com/dshills/sheetcontrols/internal/identity"
	"github.com/dshills/sheetcontrols/internal/render"
)

var controlsSelector = dom.MustCompile("." + ClassImageControls)

// Environment describes the session the sheets are rendered in.
type Environment struct {
	// IsGM reports whether the current user may use the controls.
	IsGM bool

	// SceneName is the name of the viewed scene.
	SceneName string

	// Tiles returns the display tiles of the viewed scene.
	Tiles func() []render.Tile

	// Users returns the candidate recipients.
	Users func() []render.User
}

// Result summarizes one Apply call.
type Result struct {
	// Applied is false when the sheet was gated off.
	Applied bool

	// Reason explains why a sheet was skipped.
	Reason string

	// Images is the number of images that received controls.
	Images int

	// SheetControls reports whether the sheet-wide toolbar was injected.
	SheetControls bool
}

// Injector adds controls to sheets.
type Injector struct {
	store    *config.Store
	renderer *render.Renderer
	binder   *binder.Binder
	env      Environment
	logger   Logger
	reporter func(error)

	mu       sync.Mutex
	sheets   map[string]*Sheet
	surfaces map[string][]string
	sub      *notify.Subscription
}

// InjectorOption configures an Injector.
type InjectorOption func(*Injector)

// WithLogger sets the logger.
func WithLogger(l Logger) InjectorOption {
	return func(in *Injector) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithReporter sets where errors from asynchronous actions go.
func WithReporter(fn func(error)) InjectorOption {
	return func(in *Injector) { in.reporter = fn }
}

// NewInjector creates an injector. It subscribes to fade opacity changes
// so that every applied sheet follows the setting.
func NewInjector(store *config.Store, r *render.Renderer, b *binder.Binder, env Environment, opts ...InjectorOption) (*Injector, error) {
	in := &Injector{
		store:    store,
		renderer: r,
		binder:   b,
		env:      env,
		logger:   nopLogger{},
		sheets:   make(map[string]*Sheet),
		surfaces: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.reporter == nil {
		in.reporter = func(err error) { in.logger.Error("action failed", "error", err) }
	}

	sub, err := store.OnChange(GroupFadeOpacity, in.onFadeOpacity)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", GroupFadeOpacity, err)
	}
	in.sub = sub
	return in, nil
}

func (in *Injector) onFadeOpacity(c notify.Change) {
	v, ok := schema.ToFloat(c.UpdateData)
	if !ok {
		return
	}
	in.mu.Lock()
	sheets := make([]*Sheet, 0, len(in.sheets))
	for _, s := range in.sheets {
		sheets = append(sheets, s)
	}
	in.mu.Unlock()

	for _, s := range sheets {
		SetFadeOpacity(s.Root(), v)
	}
}

// Enabled reports whether controls should appear on s.
func (in *Injector) Enabled(s *Sheet) (bool, string) {
	if !in.env.IsGM {
		return false, "user is not GM"
	}
	choices, err := in.store.Record(GroupArtGallery, "sheetSettings.modularChoices")
	if err != nil {
		return false, err.Error()
	}
	if on, _ := choices[s.DocumentType()].(bool); !on {
		return false, fmt.Sprintf("controls disabled for %s sheets", s.DocumentType())
	}
	return true, ""
}

// Apply injects controls into s. Applying a sheet again, for instance
// after it re-rendered, rebinds without stacking listeners.
func (in *Injector) Apply(s *Sheet) (Result, error) {
	if ok, reason := in.Enabled(s); !ok {
		in.logger.Debug("skipping sheet", "sheet", s.ID(), "reason", reason)
		in.Release(s.ID())
		return Result{Reason: reason}, nil
	}

	root := s.Root()
	class := s.ImageClass()
	for _, el := range root.QueryAll(MediaSelector) {
		el.AddClass(class)
	}

	opacity, err := in.store.Float(GroupFadeOpacity, "")
	if err != nil {
		return Result{}, err
	}
	SetFadeOpacity(root, opacity)

	var keys []string
	res := Result{Applied: true}
	for i, img := range root.QueryAll(ClickableSelector) {
		key := fmt.Sprintf("%s/image/%d", s.ID(), i)
		if err := in.injectImageControls(s, img, key); err != nil {
			return res, err
		}
		keys = append(keys, key)
		res.Images++
	}

	key, ok, err := in.injectSheetWideControls(s, opacity)
	if err != nil {
		return res, err
	}
	if ok {
		keys = append(keys, key)
		res.SheetControls = true
	}

	in.mu.Lock()
	stale := in.surfaces[s.ID()]
	in.sheets[s.ID()] = s
	in.surfaces[s.ID()] = keys
	in.mu.Unlock()

	for _, k := range stale {
		if !slices.Contains(keys, k) {
			in.binder.Unbind(k)
		}
	}

	in.logger.Info("controls injected", "sheet", s.ID(), "type", s.DocumentType(), "images", res.Images)
	return res, nil
}

func (in *Injector) injectImageControls(s *Sheet, img *dom.Element, key string) error {
	name := identity.Of(img)
	img.SetData("name", name)

	container := img.Parent()
	if container == nil || !container.HasClass(ClassImageContainer) {
		container = dom.NewElement("div", dom.A("class", ClassImageContainer))
		img.Wrap(container)
	} else {
		for _, old := range container.QueryAll(controlsSelector) {
			old.Remove()
		}
	}

	data := render.ImageControls{
		CurrentSceneName: in.env.SceneName,
		ImgPath:          name,
	}
	if in.env.Tiles != nil {
		for _, t := range in.env.Tiles() {
			data.DisplayTiles = append(data.DisplayTiles, render.TileOption{Tile: t})
		}
	}
	if in.env.Users != nil {
		data.Users = in.env.Users()
	}
	markup, err := in.renderer.ImageControls(data)
	if err != nil {
		return err
	}
	controls, err := dom.ParseFragment(markup)
	if err != nil {
		return err
	}
	container.AppendChild(controls...)

	img.SetAttr(action.PhaseHover.Attribute(), ActionTileIndicator)
	img.SetAttr(action.PhaseClick.Attribute(), ActionSendToDisplay)

	surface := binder.Surface{
		Key:       key,
		Container: container,
		Resolver: dispatch.Resolver{
			Surface:  s,
			Root:     s.Root(),
			Scope:    dispatch.ScopeItem,
			Item:     ItemSelector,
			Primary:  MediaSelector,
			Identify: subjectOf,
			Reporter: in.reporter,
		},
	}
	if !in.imagesClickable(s) {
		surface.Delegates = map[action.Phase]*dom.Selector{action.PhaseClick: ControlsDelegate}
	}
	_, err = in.binder.BindSurface(surface)
	return err
}

// imagesClickable reports whether clicking the image itself displays it.
// Journal images always are; other sheets need the actor images setting.
func (in *Injector) imagesClickable(s *Sheet) bool {
	if s.DocumentType() == TypeJournalEntry {
		return true
	}
	on, err := in.store.Bool(GroupActorImages, "")
	return err == nil && on
}

func subjectOf(el *dom.Element) string {
	if name, ok := el.Data("name"); ok && name != "" {
		return name
	}
	return identity.Of(el)
}

func (in *Injector) injectSheetWideControls(s *Sheet, opacity float64) (string, bool, error) {
	form := s.Root().Query(FormSelector)
	if form == nil {
		in.logger.Debug("sheet has no form for sheet-wide controls", "sheet", s.ID())
		return "", false, nil
	}
	if old := form.ElementByID("sheet-controls"); old != nil {
		old.Remove()
	}

	markup, err := in.renderer.SheetWideControls(render.SheetWideControls{
		FadeOpacity:  opacity,
		DocumentType: s.DocumentType(),
		ShowControls: true,
	})
	if err != nil {
		return "", false, err
	}
	nodes, err := dom.ParseFragment(markup)
	if err != nil {
		return "", false, err
	}
	form.PrependChild(nodes...)

	container := form.ElementByID("sheet-controls")
	if container == nil {
		return "", false, fmt.Errorf("sheet-wide controls template has no #sheet-controls")
	}
	key := s.ID() + "/sheet"
	_, err = in.binder.BindSurface(binder.Surface{
		Key:       key,
		Container: container,
		Resolver: dispatch.Resolver{
			Surface:  s,
			Root:     s.Root(),
			Scope:    dispatch.ScopeSurface,
			Reporter: in.reporter,
		},
	})
	return key, true, err
}

// Release unbinds every surface of the sheet with the given id.
func (in *Injector) Release(id string) {
	in.mu.Lock()
	keys := in.surfaces[id]
	delete(in.surfaces, id)
	delete(in.sheets, id)
	in.mu.Unlock()

	for _, k := range keys {
		in.binder.Unbind(k)
	}
}

// Sheets returns the ids of applied sheets.
func (in *Injector) Sheets() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]string, 0, len(in.sheets))
	for id := range in.sheets {
		out = append(out, id)
	}
	return out
}

// Close releases every sheet and the settings subscription.
func (in *Injector) Close() {
	for _, id := range in.Sheets() {
		in.Release(id)
	}
	in.sub.Unsubscribe()
}
