package render

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other locale falls back to.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var localeFS embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog holds the control tooltips and labels for each locale.
type Catalog struct {
	builder *catalog.Builder
	locales []string
	keys    map[string]map[string]bool
}

// LoadCatalog loads the embedded locale files.
func LoadCatalog() (*Catalog, error) {
	return LoadCatalogFS(localeFS, "locales")
}

// LoadCatalogFS loads every *.yaml file in dir of fsys. The file name must
// match its declared locale.
func LoadCatalogFS(fsys fs.FS, dir string) (*Catalog, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	sort.Strings(paths)

	c := &Catalog{
		builder: catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		keys:    make(map[string]map[string]bool),
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", p, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", p, err)
		}
		if err := c.add(p, file); err != nil {
			return nil, err
		}
	}
	if c.keys[BaseLocale] == nil {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}
	return c, nil
}

func (c *Catalog) add(p string, file localeFile) error {
	want := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if file.Locale != want {
		return fmt.Errorf("locale %s: declared locale %q must match file name", p, file.Locale)
	}
	tag, err := language.Parse(file.Locale)
	if err != nil {
		return fmt.Errorf("locale %s: %w", p, err)
	}

	keys := make(map[string]bool, len(file.Messages))
	for key, msg := range file.Messages {
		if err := c.builder.SetString(tag, key, msg); err != nil {
			return fmt.Errorf("locale %s: key %s: %w", p, key, err)
		}
		keys[key] = true
	}
	c.keys[file.Locale] = keys
	c.locales = append(c.locales, file.Locale)
	return nil
}

// Locales returns the loaded locales.
func (c *Catalog) Locales() []string {
	out := make([]string, len(c.locales))
	copy(out, c.locales)
	return out
}

// Missing returns the base-locale keys that locale does not translate.
func (c *Catalog) Missing(locale string) []string {
	var out []string
	for key := range c.keys[BaseLocale] {
		if !c.keys[locale][key] {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Printer returns a printer for locale, matched against the loaded ones.
func (c *Catalog) Printer(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(BaseLocale)
	}
	matched, _, conf := c.builder.Matcher().Match(tag)
	if conf == language.No {
		matched = language.MustParse(BaseLocale)
	}
	return message.NewPrinter(matched, message.Catalog(c.builder))
}
