package app

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dshills/sheetcontrols/internal/config/notify"
	"github.com/dshills/sheetcontrols/internal/config/schema"
	"github.com/dshills/sheetcontrols/internal/sheet"
)

func TestApplication_Query(t *testing.T) {
	app := newTestApp(t, testOptions())

	res, err := app.Query("artGallerySettings.sheetSettings.modularChoices.actor")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !res.Bool() {
		t.Errorf("actor = %v, want true", res)
	}
	if res, _ := app.Query(sheet.GroupFadeOpacity); res.Float() != 50 {
		t.Errorf("%s = %v, want 50", sheet.GroupFadeOpacity, res)
	}
	if _, err := app.Query("artGallerySettings.nothing"); !errors.Is(err, ErrNoSetting) {
		t.Errorf("missing path error = %v, want ErrNoSetting", err)
	}

	data, err := app.SettingsJSON()
	if err != nil {
		t.Fatalf("SettingsJSON: %v", err)
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		t.Fatalf("SettingsJSON is not JSON: %v", err)
	}
	if len(all) != len(app.Store().Groups()) {
		t.Errorf("SettingsJSON has %d groups, want %d", len(all), len(app.Store().Groups()))
	}
}

func TestApplication_SetPath(t *testing.T) {
	app := newTestApp(t, testOptions())

	var origins []string
	app.Store().Bus().SubscribeAll(func(c notify.Change) { origins = append(origins, c.Origin) })

	if err := app.SetPath("artGallerySettings.sheetSettings.modularChoices.item", "false"); err != nil {
		t.Fatalf("SetPath record leaf: %v", err)
	}
	if on, _ := app.Store().Bool(sheet.GroupArtGallery, "sheetSettings.modularChoices.item"); on {
		t.Error("item choice not updated")
	}
	if on, _ := app.Store().Bool(sheet.GroupArtGallery, "sheetSettings.modularChoices.actor"); !on {
		t.Error("sibling key lost")
	}

	if err := app.SetPath(sheet.GroupFadeOpacity, "30"); err != nil {
		t.Fatalf("SetPath number: %v", err)
	}
	if err := app.SetPath(sheet.GroupFadeImages, "fadeBackground"); err != nil {
		t.Fatalf("SetPath bare string: %v", err)
	}
	if v, _ := app.Store().String(sheet.GroupFadeImages, ""); v != "fadeBackground" {
		t.Errorf("%s = %q", sheet.GroupFadeImages, v)
	}

	if err := app.SetPath("artGallerySettings.unknown", "1"); !errors.Is(err, schema.ErrInvalidShape) {
		t.Errorf("unknown key error = %v, want ErrInvalidShape", err)
	}
	if len(origins) != 3 || origins[1] != OriginCLI {
		t.Errorf("origins = %v", origins)
	}
}

func TestParseAssignment(t *testing.T) {
	path, value, err := ParseAssignment("sheetFadeOpacity=40")
	if err != nil || path != "sheetFadeOpacity" || value != "40" {
		t.Errorf("ParseAssignment() = %q, %q, %v", path, value, err)
	}
	if _, _, err := ParseAssignment("=40"); err == nil {
		t.Error("empty path should fail")
	}
	if _, _, err := ParseAssignment("noequals"); err == nil {
		t.Error("missing = should fail")
	}
}
