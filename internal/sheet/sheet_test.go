package sheet

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/binder"
	"github.com/dshills/sheetcontrols/internal/config"
	"github.com/dshills/sheetcontrols/internal/config/notify"
	"github.com/dshills/sheetcontrols/internal/dispatch"
	"github.com/dshills/sheetcontrols/internal/dom"
	"github.com/dshills/sheetcontrols/internal/identity"
	"github.com/dshills/sheetcontrols/internal/render"
)

type fixture struct {
	store     *config.Store
	binder    *binder.Binder
	injector  *Injector
	displayed chan DisplayRequest
	reported  chan error
}

func newFixture(t *testing.T, env Environment, displayErr error) *fixture {
	t.Helper()

	store := config.New()
	if err := RegisterSettings(store); err != nil {
		t.Fatalf("RegisterSettings: %v", err)
	}

	f := &fixture{
		store:     store,
		displayed: make(chan DisplayRequest, 8),
		reported:  make(chan error, 8),
	}
	displayer := DisplayFunc(func(_ context.Context, req DisplayRequest) error {
		f.displayed <- req
		return displayErr
	})

	b := action.NewBuilder()
	if err := RegisterActions(b, Deps{Store: store, Displayer: displayer}); err != nil {
		t.Fatalf("RegisterActions: %v", err)
	}
	f.binder = binder.New(dispatch.New(b.Build()))

	r, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	in, err := NewInjector(store, r, f.binder, env, WithReporter(func(err error) { f.reported <- err }))
	if err != nil {
		t.Fatalf("NewInjector: %v", err)
	}
	f.injector = in
	t.Cleanup(in.Close)
	return f
}

func gmEnv() Environment {
	return Environment{
		IsGM:      true,
		SceneName: "Tavern",
		Tiles:     func() []render.Tile { return []render.Tile{{ID: "tile-1", Name: "Left Wall"}} },
		Users:     func() []render.User { return []render.User{{ID: "u1", Name: "Ada"}, {ID: "u2", Name: "Bo"}} },
	}
}

func loadSheet(t *testing.T, file string) *Sheet {
	t.Helper()
	fh, err := os.Open(file)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	doc, err := dom.Parse(fh)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := Find(doc)
	return New(root.ID(), DocumentNameFromClasses(root), root)
}

func waitDisplay(t *testing.T, f *fixture) DisplayRequest {
	t.Helper()
	select {
	case req := <-f.displayed:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no display request")
		return DisplayRequest{}
	}
}

func TestSheet_DocumentType(t *testing.T) {
	tests := []struct {
		name      string
		wantType  string
		wantClass string
	}{
		{"JournalEntry", TypeJournalEntry, ClassClickableImage},
		{"Actor", TypeActor, ClassRightClickableImage},
		{"Item", TypeItem, ClassRightClickableImage},
		{"", "", ClassRightClickableImage},
	}
	for _, tt := range tests {
		s := New("x", tt.name, dom.NewElement("div"))
		if s.DocumentType() != tt.wantType || s.ImageClass() != tt.wantClass {
			t.Errorf("%q: type = %q, class = %q", tt.name, s.DocumentType(), s.ImageClass())
		}
	}
}

func TestApply_JournalSheet(t *testing.T) {
	f := newFixture(t, gmEnv(), nil)
	s := loadSheet(t, "testdata/journal.html")
	if s.DocumentName() != "JournalEntry" || s.ID() != "journal-abc" {
		t.Fatalf("sheet = %q %q", s.ID(), s.DocumentName())
	}

	res, err := f.injector.Apply(s)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Applied || res.Images != 2 || !res.SheetControls {
		t.Errorf("Result = %+v", res)
	}

	containers := s.Root().QueryAll(ItemSelector)
	if len(containers) != 2 {
		t.Fatalf("containers = %d, want 2", len(containers))
	}
	img := containers[0].Query(MediaSelector)
	if !img.HasClass(ClassClickableImage) {
		t.Error("journal image should be clickableImage")
	}
	if name, _ := img.Data("name"); name != identity.FromSource("worlds/demo/art/dragon.webp") {
		t.Errorf("data-name = %q", name)
	}
	if v, _ := img.Attr("data-action"); v != ActionSendToDisplay {
		t.Errorf("data-action = %q", v)
	}
	if v, _ := img.Attr("data-hover-action"); v != ActionTileIndicator {
		t.Errorf("data-hover-action = %q", v)
	}
	if containers[0].Query(controlsSelector) == nil {
		t.Error("image controls not appended")
	}
	if v, _ := s.Root().Style(FadeVariable); v != "50%" {
		t.Errorf("%s = %q, want 50%%", FadeVariable, v)
	}

	form := s.Root().Query(FormSelector)
	if first := form.Children()[0]; first.ID() != "sheet-controls" {
		t.Errorf("first form child = %q, want sheet-controls", first.ID())
	}
}

func TestApply_ImageClickDisplays(t *testing.T) {
	f := newFixture(t, gmEnv(), nil)
	s := loadSheet(t, "testdata/journal.html")
	if _, err := f.injector.Apply(s); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	container := s.Root().QueryAll(ItemSelector)[1]
	img := container.Query(MediaSelector)

	ev, err := dom.Click(img)
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	if !ev.DefaultPrevented() {
		t.Error("click default not prevented")
	}
	req := waitDisplay(t, f)
	if req.Sheet != "journal-abc" || req.Method != DefaultDisplayMethod {
		t.Errorf("request = %+v", req)
	}
	if req.Source != "worlds/demo/art/map.jpg?v=3" || req.Subject != identity.FromSource(req.Source) {
		t.Errorf("source = %q subject = %q", req.Source, req.Subject)
	}

	// Pick a recipient, then a display method button.
	user := container.Query(dom.MustCompile("input[value=u2]"))
	dom.Click(user)
	if r, _ := container.Data("recipients"); r != "u2" {
		t.Errorf("recipients = %q, want u2", r)
	}
	scene := container.Query(dom.MustCompile("[data-method=artScene]"))
	dom.Click(scene)
	req = waitDisplay(t, f)
	if req.Method != "artScene" || len(req.Recipients) != 1 || req.Recipients[0] != "u2" {
		t.Errorf("request = %+v", req)
	}

	tile := container.Query(dom.MustCompile(".displayTile"))
	dom.Click(tile)
	if req = waitDisplay(t, f); req.TileID != "tile-1" || req.Method != "anyScene" {
		t.Errorf("tile request = %+v", req)
	}
}

func TestApply_DisplayErrorIsReported(t *testing.T) {
	boom := errors.New("no art scene")
	f := newFixture(t, gmEnv(), boom)
	s := loadSheet(t, "testdata/journal.html")
	f.injector.Apply(s)

	if _, err := dom.Click(s.Root().Query(ClickableSelector)); err != nil {
		t.Fatalf("async handler should not fail the click: %v", err)
	}
	waitDisplay(t, f)
	select {
	case err := <-f.reported:
		if !errors.Is(err, boom) {
			t.Errorf("reported %v, want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error not reported")
	}
}

func TestApply_Reapply(t *testing.T) {
	f := newFixture(t, gmEnv(), nil)
	s := loadSheet(t, "testdata/journal.html")

	for i := 0; i < 3; i++ {
		if _, err := f.injector.Apply(s); err != nil {
			t.Fatalf("Apply #%d: %v", i, err)
		}
	}

	containers := s.Root().QueryAll(ItemSelector)
	if len(containers) != 2 {
		t.Fatalf("containers = %d, want 2 (no double wrap)", len(containers))
	}
	if n := len(containers[0].QueryAll(controlsSelector)); n != 1 {
		t.Errorf("controls blocks = %d, want 1", n)
	}
	if n := len(s.Root().QueryAll(dom.MustCompile("#sheet-controls"))); n != 1 {
		t.Errorf("sheet toolbars = %d, want 1", n)
	}
	if f.binder.Len() != 3 {
		t.Errorf("bound surfaces = %d, want 3", f.binder.Len())
	}

	dom.Click(containers[0].Query(MediaSelector))
	waitDisplay(t, f)
	select {
	case extra := <-f.displayed:
		t.Errorf("duplicate display request %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestApply_Gating(t *testing.T) {
	t.Run("not GM", func(t *testing.T) {
		f := newFixture(t, Environment{}, nil)
		s := loadSheet(t, "testdata/journal.html")
		res, err := f.injector.Apply(s)
		if err != nil || res.Applied {
			t.Fatalf("Apply() = %+v, %v", res, err)
		}
		if s.Root().Query(ItemSelector) != nil {
			t.Error("controls injected for non-GM")
		}
	})

	t.Run("type disabled", func(t *testing.T) {
		f := newFixture(t, gmEnv(), nil)
		if err := f.store.Set(GroupArtGallery, map[string]any{
			"sheetSettings": map[string]any{"modularChoices": map[string]any{"actor": false}},
		}); err != nil {
			t.Fatal(err)
		}
		res, _ := f.injector.Apply(loadSheet(t, "testdata/actor.html"))
		if res.Applied {
			t.Error("actor sheet should be gated off")
		}
		res, _ = f.injector.Apply(loadSheet(t, "testdata/journal.html"))
		if !res.Applied {
			t.Errorf("journal sheet should still apply: %s", res.Reason)
		}
	})
}

func TestApply_ActorSheetImageClick(t *testing.T) {
	f := newFixture(t, gmEnv(), nil)
	s := loadSheet(t, "testdata/actor.html")
	if _, err := f.injector.Apply(s); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	img := s.Root().Query(ClickableSelector)
	if !img.HasClass(ClassRightClickableImage) {
		t.Error("actor image should be rightClickableImage")
	}
	dom.Click(img)
	select {
	case req := <-f.displayed:
		t.Errorf("portrait click displayed %+v without useActorSheetImages", req)
	case <-time.After(100 * time.Millisecond):
	}

	dom.Click(img.Parent().Query(dom.MustCompile("[data-method=window]")))
	waitDisplay(t, f)

	// Enabling the setting makes the image itself clickable after re-apply.
	if err := f.store.Set(GroupActorImages, true); err != nil {
		t.Fatal(err)
	}
	f.injector.Apply(s)
	dom.Click(img)
	waitDisplay(t, f)
}

func TestTileIndicator(t *testing.T) {
	f := newFixture(t, gmEnv(), nil)
	s := loadSheet(t, "testdata/journal.html")
	f.injector.Apply(s)

	container := s.Root().Query(ItemSelector)
	img := container.Query(MediaSelector)

	dom.Dispatch(img, dom.NewEvent(dom.EventMouseEnter))
	if !container.HasClass(ClassIndicatorActive) {
		t.Error("indicator not shown on enter")
	}
	dom.Dispatch(img, dom.NewEvent(dom.EventMouseLeave))
	if container.HasClass(ClassIndicatorActive) {
		t.Error("indicator not hidden on leave")
	}
}

func TestFadeToggle(t *testing.T) {
	f := newFixture(t, gmEnv(), nil)
	s := loadSheet(t, "testdata/journal.html")
	f.injector.Apply(s)
	if err := f.store.Set(GroupFadeImages, FadeBackground); err != nil {
		t.Fatal(err)
	}

	content := s.Root().Query(ContentSelector)
	journal := s.Root().Query(dom.MustCompile("[data-action=sheet.click.fadeJournal]"))
	all := s.Root().Query(dom.MustCompile("[data-action=sheet.click.fadeContent]"))

	dom.Click(journal)
	if !content.HasClass("fade") || content.HasClass("fade-all") {
		t.Errorf("classes after fadeJournal = %v", content.Classes())
	}
	if !journal.HasClass("active") || !all.HasClass("active") {
		t.Error("fade buttons should be active")
	}

	dom.Click(journal)
	if content.HasClass("fade") || journal.HasClass("active") {
		t.Error("second click should clear the fade")
	}

	dom.Click(all)
	if !content.HasClass("fade-all") {
		t.Error("fadeContent should fade images too")
	}
}

func TestFadeOpacityChange(t *testing.T) {
	f := newFixture(t, gmEnv(), nil)
	journal := loadSheet(t, "testdata/journal.html")
	actor := loadSheet(t, "testdata/actor.html")
	f.injector.Apply(journal)
	f.injector.Apply(actor)

	slider := journal.Root().Query(dom.MustCompile("#sheet-fade-opacity"))
	if err := dom.Change(slider, "30"); err != nil {
		t.Fatalf("Change: %v", err)
	}
	if v, _ := f.store.Float(GroupFadeOpacity, ""); v != 30 {
		t.Errorf("%s = %v, want 30", GroupFadeOpacity, v)
	}
	for _, s := range []*Sheet{journal, actor} {
		if v, _ := s.Root().Style(FadeVariable); v != "30%" {
			t.Errorf("%s: %s = %q, want 30%%", s.ID(), FadeVariable, v)
		}
	}

	if err := dom.Change(slider, "250"); err == nil {
		t.Error("out-of-range opacity should fail")
	}
	if err := dom.Change(slider, "abc"); err == nil {
		t.Error("non-numeric opacity should fail")
	}
}

func TestToggleSheetType(t *testing.T) {
	f := newFixture(t, gmEnv(), nil)
	s := loadSheet(t, "testdata/journal.html")
	f.injector.Apply(s)

	var origin string
	f.store.OnChange(GroupArtGallery, func(c notify.Change) { origin = c.Origin })

	toggle := s.Root().Query(dom.MustCompile("#sheet-type-toggle"))
	if !toggle.HasAttr("checked") {
		t.Fatal("toggle should render checked while controls are shown")
	}
	if err := dom.Change(toggle, TypeJournalEntry); err != nil {
		t.Fatalf("Change: %v", err)
	}
	on, err := f.store.Bool(GroupArtGallery, "sheetSettings.modularChoices.journalEntry")
	if err != nil || on {
		t.Errorf("journalEntry choice = %v, %v; want false", on, err)
	}
	if origin != SettingsOrigin {
		t.Errorf("origin = %q, want %q", origin, SettingsOrigin)
	}

	res, _ := f.injector.Apply(s)
	if res.Applied {
		t.Error("sheet should be gated off after toggling its type")
	}
	if len(f.injector.Sheets()) != 0 || f.binder.Len() != 0 {
		t.Error("gated sheet should be released")
	}
}
