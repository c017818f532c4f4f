package dom

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSelector indicates a selector string could not be parsed.
var ErrInvalidSelector = errors.New("dom: invalid selector")

// Selector is a compiled selector. It supports tag names, #id, .class,
// [attr] and [attr=value] compounds, the descendant combinator (whitespace)
// and comma-separated alternatives.
type Selector struct {
	source string
	groups [][]compound // alternatives, each a descendant chain
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrCond
}

type attrCond struct {
	name     string
	value    string
	hasValue bool
}

// Compile parses a selector string.
func Compile(sel string) (*Selector, error) {
	s := &Selector{source: sel}
	for _, alt := range strings.Split(sel, ",") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			return nil, fmt.Errorf("%w: empty alternative in %q", ErrInvalidSelector, sel)
		}
		var chain []compound
		for _, part := range splitCompounds(alt) {
			c, err := parseCompound(part)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, sel, err)
			}
			chain = append(chain, c)
		}
		s.groups = append(s.groups, chain)
	}
	return s, nil
}

// MustCompile parses a selector and panics on error.
// Useful for package-level selectors.
func MustCompile(sel string) *Selector {
	s, err := Compile(sel)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the source text.
func (s *Selector) String() string { return s.source }

// splitCompounds splits on whitespace outside brackets.
func splitCompounds(s string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
			cur.WriteRune(r)
		case r == ']':
			depth--
			cur.WriteRune(r)
		case (r == ' ' || r == '\t' || r == '\n') && depth == 0:
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readIdent := func() string {
		start := i
		for i < len(s) && isIdentChar(s[i]) {
			i++
		}
		return s[start:i]
	}

	if i < len(s) && isIdentChar(s[i]) {
		c.tag = strings.ToLower(readIdent())
		if c.tag == "*" {
			c.tag = ""
		}
	}
	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			name := readIdent()
			if name == "" {
				return c, errors.New("empty class name")
			}
			c.classes = append(c.classes, name)
		case '#':
			i++
			id := readIdent()
			if id == "" {
				return c, errors.New("empty id")
			}
			c.id = id
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, errors.New("unterminated attribute condition")
			}
			body := s[i+1 : i+end]
			i += end + 1
			name, value, hasValue := strings.Cut(body, "=")
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				return c, errors.New("empty attribute name")
			}
			value = strings.Trim(strings.TrimSpace(value), `"'`)
			c.attrs = append(c.attrs, attrCond{name: name, value: value, hasValue: hasValue})
		default:
			return c, fmt.Errorf("unexpected %q", s[i])
		}
	}
	return c, nil
}

func isIdentChar(b byte) bool {
	return b == '-' || b == '_' || b == '*' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (c compound) matches(e *Element) bool {
	if c.tag != "" && e.tag != c.tag {
		return false
	}
	if c.id != "" && e.ID() != c.id {
		return false
	}
	for _, cls := range c.classes {
		if !e.HasClass(cls) {
			return false
		}
	}
	for _, a := range c.attrs {
		v, ok := e.Attr(a.name)
		if !ok || (a.hasValue && v != a.value) {
			return false
		}
	}
	return true
}

// Matches reports whether e matches the selector.
func (s *Selector) Matches(e *Element) bool {
	if s == nil || e == nil {
		return false
	}
	for _, chain := range s.groups {
		if matchChain(chain, e) {
			return true
		}
	}
	return false
}

func matchChain(chain []compound, e *Element) bool {
	last := len(chain) - 1
	if !chain[last].matches(e) {
		return false
	}
	// Remaining compounds must match ancestors in order, nearest first.
	i := last - 1
	for anc := e.parent; anc != nil && i >= 0; anc = anc.parent {
		if chain[i].matches(anc) {
			i--
		}
	}
	return i < 0
}

// Closest returns the nearest element, starting with e itself, that matches
// the selector, or nil.
func (e *Element) Closest(s *Selector) *Element {
	for cur := e; cur != nil; cur = cur.parent {
		if s.Matches(cur) {
			return cur
		}
	}
	return nil
}

// QueryAll returns descendants of e (excluding e) that match, in document order.
func (e *Element) QueryAll(s *Selector) []*Element {
	var out []*Element
	for _, c := range e.children {
		c.Walk(func(el *Element) bool {
			if s.Matches(el) {
				out = append(out, el)
			}
			return true
		})
	}
	return out
}

// Query returns the first matching descendant of e, or nil.
func (e *Element) Query(s *Selector) *Element {
	var found *Element
	for _, c := range e.children {
		if !c.Walk(func(el *Element) bool {
			if s.Matches(el) {
				found = el
				return false
			}
			return true
		}) {
			break
		}
	}
	return found
}
