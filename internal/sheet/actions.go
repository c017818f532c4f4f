package sheet

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/config"
	"github.com/dshills/sheetcontrols/internal/config/merge"
	"github.com/dshills/sheetcontrols/internal/dom"
	"github.com/dshills/sheetcontrols/internal/identity"
)

// Built-in action paths.
const (
	ActionSendToDisplay   = "image.click.sendImageDataToDisplay"
	ActionToggleRecipient = "image.click.toggleRecipient"
	ActionTileIndicator   = "image.hover.showTileIndicator"
	ActionToggleSheetType = "image.change.toggleSheetType"
	ActionFadeJournal     = "sheet.click.fadeJournal"
	ActionFadeContent     = "sheet.click.fadeContent"
	ActionFadeOpacity     = "sheet.change.fadeOpacity"
)

// DefaultDisplayMethod is used when a control names no method.
const DefaultDisplayMethod = "window"

// DisplayTimeout bounds a single display request.
const DisplayTimeout = 30 * time.Second

// Deps are the collaborators of the built-in actions.
type Deps struct {
	Store     *config.Store
	Displayer Displayer
}

// RegisterActions adds the built-in actions to b.
func RegisterActions(b *action.Builder, deps Deps) error {
	a := &actions{Deps: deps}
	defs := map[string]action.Descriptor{
		ActionSendToDisplay:   action.Define().OnClick(a.sendToDisplay),
		ActionToggleRecipient: action.Define().OnClick(a.toggleRecipient),
		ActionTileIndicator:   action.Define().OnHover(a.showTileIndicator),
		ActionToggleSheetType: action.Define().OnChange(a.toggleSheetType),
		ActionFadeJournal:     action.Define().OnClick(a.fade),
		ActionFadeContent:     action.Define().OnClick(a.fade),
		ActionFadeOpacity:     action.Define().OnChange(a.fadeOpacity),
	}
	paths := make([]string, 0, len(defs))
	for p := range defs {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		if err := b.Register(p, defs[p]); err != nil {
			return err
		}
	}
	return nil
}

type actions struct {
	Deps
}

// sendToDisplay reads the request from the DOM synchronously and hands it
// to the displayer on its own goroutine.
func (a *actions) sendToDisplay(ev *dom.Event, ctx *action.Context) error {
	if a.Displayer == nil {
		return nil
	}
	req := displayRequest(ctx)
	send := action.Async(func(*dom.Event, *action.Context) error {
		dctx, cancel := context.WithTimeout(context.Background(), DisplayTimeout)
		defer cancel()
		if err := a.Displayer.Display(dctx, req); err != nil {
			return fmt.Errorf("display %s via %s: %w", req.Subject, req.Method, err)
		}
		return nil
	})
	return send(ev, ctx)
}

func displayRequest(ctx *action.Context) DisplayRequest {
	req := DisplayRequest{
		Method:  DefaultDisplayMethod,
		Subject: ctx.Subject,
		Source:  identity.Source(ctx.Primary),
	}
	if ctx.Surface != nil {
		req.Sheet = ctx.Surface.ID()
	}
	if m, ok := ctx.Control.Data("method"); ok && m != "" {
		req.Method = m
	}
	if tile, ok := ctx.Control.Data("tile-id"); ok {
		req.TileID = tile
	}
	if ctx.Item != nil {
		req.Recipients = recipients(ctx.Item)
	}
	return req
}

func recipients(item *dom.Element) []string {
	v, _ := item.Data("recipients")
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

func (a *actions) toggleRecipient(_ *dom.Event, ctx *action.Context) error {
	if ctx.Item == nil {
		return nil
	}
	user := ctx.Control.Value
	if user == "" {
		return nil
	}
	list := recipients(ctx.Item)
	if i := slices.Index(list, user); i >= 0 {
		list = slices.Delete(list, i, i+1)
		ctx.Control.RemoveAttr("checked")
	} else {
		list = append(list, user)
		ctx.Control.SetAttr("checked", "")
	}
	ctx.Item.SetData("recipients", strings.Join(list, ","))
	return nil
}

func (a *actions) showTileIndicator(ev *dom.Event, ctx *action.Context) error {
	target := ctx.Item
	if target == nil {
		target = ctx.Control
	}
	switch ev.Type {
	case dom.EventMouseEnter:
		target.AddClass(ClassIndicatorActive)
	case dom.EventMouseLeave:
		target.RemoveClass(ClassIndicatorActive)
	}
	return nil
}

var fadeButtonSelector = dom.MustCompile(
	fmt.Sprintf("[data-action=%s], [data-action=%s]", ActionFadeJournal, ActionFadeContent))

// fade toggles the faded look of the sheet content.
func (a *actions) fade(_ *dom.Event, ctx *action.Context) error {
	content := ctx.Control.Closest(ContentSelector)
	if content == nil {
		content = ctx.Root
	}
	buttons := content.QueryAll(fadeButtonSelector)

	if content.HasClass("fade") {
		content.RemoveClass("fade", "fade-all")
		for _, b := range buttons {
			b.RemoveClass("active")
		}
		return nil
	}

	classes := []string{"fade"}
	if ctx.Path == ActionFadeContent || a.fadeImages() {
		classes = append(classes, "fade-all")
	}
	content.AddClass(classes...)
	for _, b := range buttons {
		b.AddClass("active")
	}
	return nil
}

func (a *actions) fadeImages() bool {
	if a.Store == nil {
		return false
	}
	mode, err := a.Store.String(GroupFadeImages, "")
	return err == nil && mode == FadeAll
}

func (a *actions) fadeOpacity(_ *dom.Event, ctx *action.Context) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(ctx.Control.Value), 64)
	if err != nil {
		return fmt.Errorf("fade opacity %q: %w", ctx.Control.Value, err)
	}
	if a.Store != nil {
		if err := a.Store.Set(GroupFadeOpacity, v); err != nil {
			return err
		}
	}
	SetFadeOpacity(ctx.Root, v)
	return nil
}

func (a *actions) toggleSheetType(_ *dom.Event, ctx *action.Context) error {
	docType := ctx.Control.Value
	if docType == "" || a.Store == nil {
		return nil
	}
	enabled := ctx.Control.HasAttr("checked")
	update := merge.Nest("sheetSettings.modularChoices."+docType, enabled)
	return a.Store.Set(GroupArtGallery, update)
}

// SetFadeOpacity writes the fade variable on root.
func SetFadeOpacity(root *dom.Element, percent float64) {
	if root == nil {
		return
	}
	root.SetStyle(FadeVariable, strconv.FormatFloat(percent, 'f', -1, 64)+"%")
}
