// Package identity derives stable identifiers for image-bearing elements.
//
// The identifier is a name-based (SHA-1) UUID of the element's media
// source, so the same picture gets the same identifier in every sheet and
// across restarts. Query strings and fragments are ignored.
package identity

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/sheetcontrols/internal/dom"
)

// Namespace is the UUID namespace for image identifiers.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sheetcontrols/images"))

var (
	sourceSelector = dom.MustCompile("source[src]")
	cssURL         = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)
)

// Source returns the media source of el: its src attribute, the src of a
// nested source element (video), a data-src attribute, or a CSS
// background-image url. It returns "" when none is present.
func Source(el *dom.Element) string {
	if el == nil {
		return ""
	}
	if src, ok := el.Attr("src"); ok && src != "" {
		return src
	}
	if child := el.Query(sourceSelector); child != nil {
		src, _ := child.Attr("src")
		return src
	}
	if src, ok := el.Data("src"); ok && src != "" {
		return src
	}
	if bg, ok := el.Style("background-image"); ok {
		if m := cssURL.FindStringSubmatch(bg); m != nil {
			return m[1]
		}
	}
	return ""
}

// Normalize strips the query and fragment from src and cleans its path.
func Normalize(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	u.RawQuery = ""
	u.Fragment = ""
	if u.Path != "" {
		u.Path = path.Clean(u.Path)
		u.RawPath = ""
	}
	return u.String()
}

// FromSource returns the identifier for a media source.
func FromSource(src string) string {
	return uuid.NewSHA1(Namespace, []byte(Normalize(src))).String()
}

// Of returns the identifier for el. Elements with no media source get "".
func Of(el *dom.Element) string {
	src := Source(el)
	if src == "" {
		return ""
	}
	return FromSource(src)
}

// Resolver caches identifiers by element. It is not safe for concurrent use.
type Resolver struct {
	cache map[*dom.Element]string
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[*dom.Element]string)}
}

// Resolve returns the identifier for el, computing it on first use.
func (r *Resolver) Resolve(el *dom.Element) string {
	if id, ok := r.cache[el]; ok {
		return id
	}
	id := Of(el)
	r.cache[el] = id
	return id
}
