// Package render produces the markup for image and sheet-wide controls.
//
// Templates and their locale catalogs are embedded. Output is plain HTML
// that the sheet layer parses back into elements.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/google/uuid"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// Template names.
const (
	ImageControlsTemplate = "image-controls.html.tmpl"
	SheetControlsTemplate = "sheet-wide-controls.html.tmpl"
)

// DisplayMethod is one way of showing an image to players.
type DisplayMethod struct {
	Name    string
	Icon    string
	Tooltip string
}

// DisplayMethods lists the supported display methods.
var DisplayMethods = []DisplayMethod{
	{Name: "window", Icon: "fas fa-external-link-alt", Tooltip: "display.window"},
	{Name: "journalEntry", Icon: "fas fa-book-open", Tooltip: "display.journalEntry"},
	{Name: "artScene", Icon: "far fa-image", Tooltip: "display.artScene"},
	{Name: "anyScene", Icon: "fas fa-vector-square", Tooltip: "display.anyScene"},
}

// Tile is a display tile in the viewed scene.
type Tile struct {
	ID      string
	Name    string
	Missing bool
}

// TileOption pairs a tile with an element-unique identifier.
type TileOption struct {
	Tile     Tile
	RandomID string
}

// User is a candidate recipient of a shared image.
type User struct {
	ID       string
	Name     string
	RandomID string
}

// ImageControls is the data for the per-image controls template.
type ImageControls struct {
	CurrentSceneName string
	DisplayMethods   []DisplayMethod
	DisplayTiles     []TileOption
	ImgPath          string
	Users            []User
}

// SheetControl is one button of the sheet-wide toolbar.
type SheetControl struct {
	Name    string
	Action  string
	Icon    string
	Tooltip string
	Active  bool
}

// SheetControls lists the sheet-wide toolbar buttons.
var SheetControls = []SheetControl{
	{Name: "fadeJournal", Action: "sheet.click.fadeJournal", Icon: "fas fa-eye-slash", Tooltip: "sheet.fadeJournal"},
	{Name: "fadeContent", Action: "sheet.click.fadeContent", Icon: "fas fa-low-vision", Tooltip: "sheet.fadeContent"},
}

// SheetWideControls is the data for the sheet-wide controls template.
type SheetWideControls struct {
	Controls     []SheetControl
	FadeOpacity  float64
	DocumentType string
	ShowControls bool
}

// Renderer executes the control templates for one locale.
type Renderer struct {
	tmpl *template.Template
}

// Option configures a Renderer.
type Option func(*options)

type options struct {
	locale  string
	catalog *Catalog
}

// WithLocale selects the locale for tooltips and labels.
func WithLocale(locale string) Option {
	return func(o *options) { o.locale = locale }
}

// WithCatalog uses a preloaded catalog.
func WithCatalog(c *Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// New parses the embedded templates.
func New(opts ...Option) (*Renderer, error) {
	o := options{locale: BaseLocale}
	for _, opt := range opts {
		opt(&o)
	}
	if o.catalog == nil {
		c, err := LoadCatalog()
		if err != nil {
			return nil, err
		}
		o.catalog = c
	}
	printer := o.catalog.Printer(o.locale)

	funcs := template.FuncMap{
		"t": func(key string, args ...any) string {
			return printer.Sprintf(key, args...)
		},
	}
	tmpl, err := template.New("controls").Funcs(funcs).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// ImageControls renders the controls for one image. Missing display
// methods default to DisplayMethods; missing random IDs are generated.
func (r *Renderer) ImageControls(data ImageControls) (string, error) {
	if data.DisplayMethods == nil {
		data.DisplayMethods = DisplayMethods
	}
	for i := range data.DisplayTiles {
		if data.DisplayTiles[i].RandomID == "" {
			data.DisplayTiles[i].RandomID = RandomID()
		}
	}
	for i := range data.Users {
		if data.Users[i].RandomID == "" {
			data.Users[i].RandomID = RandomID()
		}
	}
	return r.execute(ImageControlsTemplate, data)
}

// SheetWideControls renders the sheet toolbar. Missing controls default
// to SheetControls.
func (r *Renderer) SheetWideControls(data SheetWideControls) (string, error) {
	if data.Controls == nil {
		data.Controls = SheetControls
	}
	return r.execute(SheetControlsTemplate, data)
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// RandomID returns a short identifier for element ids within one render.
func RandomID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:8])
}
