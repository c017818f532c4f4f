package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/binder"
	"github.com/dshills/sheetcontrols/internal/config"
	"github.com/dshills/sheetcontrols/internal/config/notify"
	"github.com/dshills/sheetcontrols/internal/config/schema"
	"github.com/dshills/sheetcontrols/internal/dispatch"
	"github.com/dshills/sheetcontrols/internal/dom"
	"github.com/dshills/sheetcontrols/internal/logging"
	"github.com/dshills/sheetcontrols/internal/sheet"
)

type testSurface string

func (s testSurface) ID() string { return string(s) }

func counterGroup() schema.Group {
	return schema.Group{
		Name:    "counter",
		Kind:    schema.KindRecord,
		Default: map[string]any{"count": 0},
	}
}

// toggleCounter increments counter.count through the store.
func toggleCounter(b *action.Builder, store *config.Store) error {
	return b.Register("widget.click.toggle", action.Define().OnClick(func(_ *dom.Event, _ *action.Context) error {
		n, err := store.Int("counter", "count")
		if err != nil {
			return err
		}
		return store.Set("counter", map[string]any{"count": n + 1})
	}))
}

func testOptions() Options {
	return Options{InMemory: true, GM: true, LogLevel: "error", Locale: "en-US"}
}

func newTestApp(t *testing.T, opts Options, extra ...Option) *Application {
	t.Helper()
	extra = append([]Option{WithLogger(logging.Null())}, extra...)
	app, err := New(opts, extra...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { app.Shutdown() })
	return app
}

func widget() (*dom.Element, *dom.Element) {
	btn := dom.NewElement("button", dom.A("data-action", "widget.click.toggle"))
	icon := dom.NewElement("i", dom.A("class", "fas fa-plus"))
	btn.AppendChild(icon)
	panel := dom.NewElement("div", dom.A("id", "panel"))
	panel.AppendChild(btn)
	return panel, icon
}

func bindWidget(t *testing.T, app *Application, panel *dom.Element) {
	t.Helper()
	_, err := app.Binder().BindSurface(binder.Surface{
		Key:       "panel",
		Container: panel,
		Resolver:  dispatch.Resolver{Surface: testSurface("panel"), Scope: dispatch.ScopeSurface},
	})
	if err != nil {
		t.Fatalf("BindSurface: %v", err)
	}
}

func TestApplication_CounterEndToEnd(t *testing.T) {
	app := newTestApp(t, testOptions(), WithGroups(counterGroup()), WithActions(toggleCounter))

	var mu sync.Mutex
	var changes []notify.Change
	if _, err := app.Store().OnChange("counter", func(c notify.Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("OnChange: %v", err)
	}

	panel, icon := widget()
	bindWidget(t, app, panel)
	// Binding again must not stack listeners.
	bindWidget(t, app, panel)

	for i := 0; i < 3; i++ {
		if _, err := dom.Click(icon); err != nil {
			t.Fatalf("Click: %v", err)
		}
	}

	if n, _ := app.Store().Int("counter", "count"); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 3 {
		t.Fatalf("broadcasts = %d, want 3", len(changes))
	}
	last := changes[2]
	if last.Origin != "counter" {
		t.Errorf("Origin = %q, want counter", last.Origin)
	}
	if m, _ := last.UpdateData.(map[string]any); m["count"] != 3 {
		t.Errorf("UpdateData = %v, want count 3", last.UpdateData)
	}
	if snap := app.Metrics().Snapshot(); snap.SettingChanges != 3 {
		t.Errorf("SettingChanges = %d, want 3", snap.SettingChanges)
	}
}

func TestApplication_LuaScript(t *testing.T) {
	script := filepath.Join(t.TempDir(), "widget.lua")
	src := `actions = { widget = { click = { toggle = { onClick = function(ev, ctx)
	  local n = settings.get("counter", "count")
	  settings.set("counter", { count = n + 1 })
	end } } } }`
	if err := os.WriteFile(script, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := testOptions()
	opts.Scripts = []string{script}
	app := newTestApp(t, opts, WithGroups(counterGroup()))

	if !app.Registry().Has("widget.click.toggle") {
		t.Fatal("Lua action not registered")
	}
	panel, icon := widget()
	bindWidget(t, app, panel)
	dom.Click(icon)
	dom.Click(icon)
	if n, _ := app.Store().Int("counter", "count"); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestApplication_DuplicateActionFails(t *testing.T) {
	dup := func(b *action.Builder, _ *config.Store) error {
		return b.Register(sheet.ActionFadeJournal, action.Define())
	}
	_, err := New(testOptions(), WithLogger(logging.Null()), WithActions(dup))
	var ie *InitError
	if !errors.As(err, &ie) || ie.Component != "actions" {
		t.Fatalf("New() error = %v, want actions InitError", err)
	}
}

func TestApplication_OpenAndInteract(t *testing.T) {
	displayed := make(chan sheet.DisplayRequest, 4)
	displayer := sheet.DisplayFunc(func(_ context.Context, req sheet.DisplayRequest) error {
		displayed <- req
		return nil
	})
	app := newTestApp(t, testOptions(), WithDisplayer(displayer))

	s, res, err := app.OpenFile("testdata/journal.html")
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if !res.Applied || res.Images != 2 {
		t.Fatalf("Result = %+v", res)
	}
	if ids := app.Sheets(); len(ids) != 1 || ids[0] != "journal-abc" {
		t.Errorf("Sheets() = %v", ids)
	}

	if err := app.Interact(s.ID(), Interaction{Kind: KindClick, Selector: "img"}); err != nil {
		t.Fatalf("Interact click: %v", err)
	}
	select {
	case req := <-displayed:
		if req.Source != "worlds/demo/art/dragon.webp" {
			t.Errorf("Source = %q", req.Source)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no display request")
	}

	if err := app.Interact(s.ID(), Interaction{Kind: KindChange, Selector: "#sheet-fade-opacity", Value: "30"}); err != nil {
		t.Fatalf("Interact change: %v", err)
	}
	if v, _ := app.Store().Float(sheet.GroupFadeOpacity, ""); v != 30 {
		t.Errorf("%s = %v, want 30", sheet.GroupFadeOpacity, v)
	}
	if v, _ := s.Root().Style(sheet.FadeVariable); v != "30%" {
		t.Errorf("fade variable = %q, want 30%%", v)
	}

	out, err := app.Render(s.ID())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "clickableImageContainer") || !strings.Contains(out, "sheet-controls") {
		t.Error("rendered sheet lacks injected controls")
	}

	if snap := app.Metrics().Snapshot(); snap.Interactions != 2 || snap.SheetsApplied != 1 {
		t.Errorf("metrics = %+v", snap)
	}

	if err := app.Close(s.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := app.Interact(s.ID(), Interaction{Kind: KindClick, Selector: "img"}); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("Interact after Close error = %v, want ErrSheetNotFound", err)
	}
}

func TestApplication_ToggleSheetType(t *testing.T) {
	app := newTestApp(t, testOptions())
	s, _, err := app.OpenFile("testdata/journal.html")
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	const path = "sheetSettings.modularChoices." + sheet.TypeJournalEntry
	toggle, err := ParseInteraction("change:#sheet-type-toggle=" + sheet.TypeJournalEntry)
	if err != nil {
		t.Fatalf("ParseInteraction: %v", err)
	}

	for i, want := range []bool{false, true} {
		if err := app.Interact(s.ID(), toggle); err != nil {
			t.Fatalf("Interact #%d: %v", i+1, err)
		}
		if on, err := app.Store().Bool(sheet.GroupArtGallery, path); err != nil || on != want {
			t.Errorf("after change #%d %s = %v, %v; want %v", i+1, path, on, err, want)
		}
	}
}

func TestApplication_InteractErrors(t *testing.T) {
	app := newTestApp(t, testOptions())
	s, _, err := app.OpenFile("testdata/journal.html")
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	err = app.Interact(s.ID(), Interaction{Kind: KindClick, Selector: "#nothing"})
	if !errors.Is(err, ErrNoTarget) {
		t.Errorf("error = %v, want ErrNoTarget", err)
	}
	if _, _, err := app.Open(strings.NewReader("<p>no sheet</p>")); !errors.Is(err, ErrNoSheet) {
		t.Errorf("Open error = %v, want ErrNoSheet", err)
	}
	if err := app.Close("missing"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("Close error = %v, want ErrSheetNotFound", err)
	}

	app.Shutdown()
	if err := app.Interact(s.ID(), Interaction{Kind: KindClick, Selector: "img"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Interact after Shutdown error = %v, want ErrClosed", err)
	}
}

func TestApplication_NotGM(t *testing.T) {
	opts := testOptions()
	opts.GM = false
	app := newTestApp(t, opts)

	_, res, err := app.OpenFile("testdata/journal.html")
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if res.Applied || res.Reason == "" {
		t.Errorf("Result = %+v, want skipped with reason", res)
	}
	if snap := app.Metrics().Snapshot(); snap.SheetsSkipped != 1 {
		t.Errorf("SheetsSkipped = %d, want 1", snap.SheetsSkipped)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestApplication_SettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	writeFile(t, path, `
sheetFadeOpacity = 20

[artGallerySettings.sheetSettings.modularChoices]
journalEntry = false
`)
	opts := testOptions()
	opts.SettingsPath = path
	app := newTestApp(t, opts)

	if v, _ := app.Store().Float(sheet.GroupFadeOpacity, ""); v != 20 {
		t.Errorf("%s = %v, want 20", sheet.GroupFadeOpacity, v)
	}
	if _, res, _ := app.OpenFile("testdata/journal.html"); res.Applied {
		t.Error("journal sheets should be disabled by the settings file")
	}

	writeFile(t, path, "sheetFadeOpacity = 70\n")
	if err := app.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if v, _ := app.Store().Float(sheet.GroupFadeOpacity, ""); v != 70 {
		t.Errorf("after reload %s = %v, want 70", sheet.GroupFadeOpacity, v)
	}

	writeFile(t, path, "sheetFadeOpacity = 500\n")
	if err := app.Reload(); err == nil {
		t.Error("out of range value should fail reload")
	}
	if v, _ := app.Store().Float(sheet.GroupFadeOpacity, ""); v != 70 {
		t.Errorf("rejected reload changed value to %v", v)
	}
	if snap := app.Metrics().Snapshot(); snap.Reloads != 2 || snap.ReloadErrors != 1 {
		t.Errorf("metrics = %+v", snap)
	}
}

func TestApplication_SettingsFileInvalidShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "fadeSheetImages: fadeNothing\n")
	opts := testOptions()
	opts.SettingsPath = path

	_, err := New(opts, WithLogger(logging.Null()))
	if !errors.Is(err, schema.ErrInvalidShape) {
		t.Fatalf("New() error = %v, want ErrInvalidShape", err)
	}
}

func TestApplication_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "sheetFadeOpacity: 10\n")
	opts := testOptions()
	opts.SettingsPath = path
	opts.Watch = true
	app := newTestApp(t, opts)

	writeFile(t, path, "sheetFadeOpacity: 90\n")
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := app.Store().Float(sheet.GroupFadeOpacity, ""); v == 90 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("settings file change was not applied")
}

func TestApplication_SQLitePersistence(t *testing.T) {
	opts := Options{DBPath: filepath.Join(t.TempDir(), "settings.db"), GM: true}

	first, err := New(opts, WithLogger(logging.Null()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	update := map[string]any{"sheetSettings": map[string]any{"modularChoices": map[string]any{"actor": false}}}
	if err := first.Store().Set(sheet.GroupArtGallery, update); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := first.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	second := newTestApp(t, opts)
	on, err := second.Store().Bool(sheet.GroupArtGallery, "sheetSettings.modularChoices.actor")
	if err != nil || on {
		t.Errorf("actor = %v, %v; want false from the database", on, err)
	}
	if on, _ := second.Store().Bool(sheet.GroupArtGallery, "sheetSettings.modularChoices.item"); !on {
		t.Error("default item choice lost")
	}
}

func TestApplication_ShutdownTwice(t *testing.T) {
	app := newTestApp(t, testOptions())
	if err := app.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := app.Shutdown(); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
	if err := app.Reload(); !errors.Is(err, ErrClosed) {
		t.Errorf("Reload after Shutdown error = %v, want ErrClosed", err)
	}
}
