package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reads a complete HTML document and returns its <html> element.
func Parse(r io.Reader) (*Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return fromNode(n), nil
		}
	}
	return nil, fmt.Errorf("parse document: no root element")
}

// ParseFragment parses markup as the children of a <div> and returns the
// top-level elements. Top-level text is dropped.
func ParseFragment(markup string) ([]*Element, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	var out []*Element
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, fromNode(n))
		}
	}
	return out, nil
}

func fromNode(n *html.Node) *Element {
	e := NewElement(n.Data)
	for _, a := range n.Attr {
		e.SetAttr(a.Key, a.Val)
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			e.AppendChild(fromNode(c))
		case html.TextNode:
			text.WriteString(c.Data)
		}
	}
	e.text = strings.TrimSpace(text.String())
	return e
}

// Render serializes e and its descendants as HTML.
func Render(e *Element) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, toNode(e)); err != nil {
		return "", fmt.Errorf("render %s: %w", e.tag, err)
	}
	return buf.String(), nil
}

func toNode(e *Element) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     e.tag,
		DataAtom: atom.Lookup([]byte(e.tag)),
	}
	for _, name := range e.AttrNames() {
		var val string
		if name == "style" {
			val = e.styleString()
		} else {
			val, _ = e.Attr(name)
		}
		n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
	}
	if e.text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: e.text})
	}
	for _, c := range e.children {
		n.AppendChild(toNode(c))
	}
	return n
}
