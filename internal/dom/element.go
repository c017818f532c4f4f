// Package dom provides the document model that controls are rendered into:
// an element tree with attributes and classes, compound selectors, and
// bubbling events with removable listeners.
//
// The model is deliberately small. It carries what control binding needs
// (ancestry, siblings, data attributes, label/input association) and
// nothing about layout or styling beyond inline style properties.
package dom

import (
	"sort"
	"strings"
)

// Element is a node in the document tree.
type Element struct {
	tag      string
	attrs    map[string]string
	classes  []string
	style    map[string]string
	parent   *Element
	children []*Element
	text     string

	// Value is the current value of form controls.
	Value string

	listeners *listenerSet
}

// Attr is a name/value attribute pair used when constructing elements.
type Attr struct {
	Name  string
	Value string
}

// A returns an attribute pair.
func A(name, value string) Attr {
	return Attr{Name: name, Value: value}
}

// NewElement creates a detached element. The "class" attribute is split into
// the class list; "value" also seeds Value.
func NewElement(tag string, attrs ...Attr) *Element {
	e := &Element{
		tag:   strings.ToLower(tag),
		attrs: make(map[string]string),
	}
	for _, a := range attrs {
		e.SetAttr(a.Name, a.Value)
	}
	return e
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string { return e.tag }

// ID returns the id attribute.
func (e *Element) ID() string { return e.attrs["id"] }

// Text returns the element's own text content.
func (e *Element) Text() string { return e.text }

// SetText replaces the element's own text content.
func (e *Element) SetText(s string) { e.text = s }

// Parent returns the parent element, or nil for a root.
func (e *Element) Parent() *Element { return e.parent }

// Children returns a copy of the child list.
func (e *Element) Children() []*Element {
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// Attr returns an attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	if name == "class" {
		if len(e.classes) == 0 {
			return "", false
		}
		return strings.Join(e.classes, " "), true
	}
	v, ok := e.attrs[name]
	return v, ok
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// SetAttr sets an attribute. Setting "class" replaces the class list.
func (e *Element) SetAttr(name, value string) {
	name = strings.ToLower(name)
	switch name {
	case "class":
		e.classes = strings.Fields(value)
		return
	case "value":
		e.Value = value
	case "style":
		e.style = parseStyle(value)
		return
	}
	e.attrs[name] = value
}

// RemoveAttr deletes an attribute.
func (e *Element) RemoveAttr(name string) {
	name = strings.ToLower(name)
	if name == "class" {
		e.classes = nil
		return
	}
	delete(e.attrs, name)
}

// AttrNames returns the sorted attribute names, including "class" and
// "style" when set.
func (e *Element) AttrNames() []string {
	names := make([]string, 0, len(e.attrs)+2)
	for k := range e.attrs {
		names = append(names, k)
	}
	if len(e.classes) > 0 {
		names = append(names, "class")
	}
	if len(e.style) > 0 {
		names = append(names, "style")
	}
	sort.Strings(names)
	return names
}

// Data returns a data-* attribute by its suffix ("hover-action" reads
// "data-hover-action").
func (e *Element) Data(key string) (string, bool) {
	return e.Attr("data-" + key)
}

// SetData sets a data-* attribute by its suffix.
func (e *Element) SetData(key, value string) {
	e.SetAttr("data-"+key, value)
}

// Classes returns a copy of the class list.
func (e *Element) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// HasClass reports whether the element carries the class.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.classes {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass adds classes not already present.
func (e *Element) AddClass(names ...string) {
	for _, n := range names {
		if n != "" && !e.HasClass(n) {
			e.classes = append(e.classes, n)
		}
	}
}

// RemoveClass removes classes if present.
func (e *Element) RemoveClass(names ...string) {
	kept := e.classes[:0]
	for _, c := range e.classes {
		drop := false
		for _, n := range names {
			if c == n {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	e.classes = kept
}

// ToggleClass flips a class and reports whether it is now present.
func (e *Element) ToggleClass(name string) bool {
	if e.HasClass(name) {
		e.RemoveClass(name)
		return false
	}
	e.AddClass(name)
	return true
}

// Style returns an inline style property.
func (e *Element) Style(prop string) (string, bool) {
	v, ok := e.style[prop]
	return v, ok
}

// SetStyle sets an inline style property.
func (e *Element) SetStyle(prop, value string) {
	if e.style == nil {
		e.style = make(map[string]string)
	}
	e.style[prop] = value
}

func (e *Element) styleString() string {
	props := make([]string, 0, len(e.style))
	for k := range e.style {
		props = append(props, k)
	}
	sort.Strings(props)

	var b strings.Builder
	for i, k := range props {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.style[k])
		b.WriteString(";")
	}
	return b.String()
}

func parseStyle(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// AppendChild appends children, detaching them from any previous parent.
func (e *Element) AppendChild(children ...*Element) {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.detach()
		c.parent = e
		e.children = append(e.children, c)
	}
}

// PrependChild inserts children at the front, preserving their order.
func (e *Element) PrependChild(children ...*Element) {
	var front []*Element
	for _, c := range children {
		if c == nil {
			continue
		}
		c.detach()
		c.parent = e
		front = append(front, c)
	}
	e.children = append(front, e.children...)
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	e.detach()
}

func (e *Element) detach() {
	if e.parent == nil {
		return
	}
	p := e.parent
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	e.parent = nil
}

// Wrap places wrapper at e's position in the tree and moves e inside it.
func (e *Element) Wrap(wrapper *Element) {
	if wrapper == nil {
		return
	}
	wrapper.detach()
	if p := e.parent; p != nil {
		for i, c := range p.children {
			if c == e {
				p.children[i] = wrapper
				wrapper.parent = p
				break
			}
		}
		e.parent = nil
	}
	wrapper.AppendChild(e)
}

// PreviousSibling returns the sibling element before e, or nil.
func (e *Element) PreviousSibling() *Element {
	if e.parent == nil {
		return nil
	}
	siblings := e.parent.children
	for i, c := range siblings {
		if c == e {
			if i == 0 {
				return nil
			}
			return siblings[i-1]
		}
	}
	return nil
}

// NextSibling returns the sibling element after e, or nil.
func (e *Element) NextSibling() *Element {
	if e.parent == nil {
		return nil
	}
	siblings := e.parent.children
	for i, c := range siblings {
		if c == e {
			if i == len(siblings)-1 {
				return nil
			}
			return siblings[i+1]
		}
	}
	return nil
}

// Root returns the topmost ancestor of e (e itself when detached).
func (e *Element) Root() *Element {
	cur := e
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Contains reports whether other is e or a descendant of e.
func (e *Element) Contains(other *Element) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == e {
			return true
		}
	}
	return false
}

// Walk visits e and its descendants in document order. Returning false from
// fn stops the walk.
func (e *Element) Walk(fn func(*Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, c := range e.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// ElementByID returns the first descendant (or e) with the given id.
func (e *Element) ElementByID(id string) *Element {
	var found *Element
	e.Walk(func(el *Element) bool {
		if el.ID() == id {
			found = el
			return false
		}
		return true
	})
	return found
}
