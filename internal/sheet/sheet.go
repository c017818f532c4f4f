// Package sheet injects image controls into rendered document sheets and
// provides the actions those controls trigger.
//
// A sheet is gated on the document type: controls appear only for a GM
// and only when the art gallery settings enable the sheet's type. Every
// image on an enabled sheet is wrapped in a container that holds its
// rendered controls, and the sheet's form gets a toolbar of sheet-wide
// controls. Each container and the toolbar are bound as separate surfaces,
// so applying the same sheet twice replaces earlier listeners.
package sheet

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/sheetcontrols/internal/dom"
)

// Document types with built-in support.
const (
	TypeJournalEntry = "journalEntry"
	TypeActor        = "actor"
	TypeItem         = "item"
)

// Class names applied to media and wrappers.
const (
	ClassClickableImage      = "clickableImage"
	ClassRightClickableImage = "rightClickableImage"
	ClassImageContainer      = "clickableImageContainer"
	ClassImageControls       = "clickableImageControls"
	ClassIndicatorActive     = "indicator-active"
)

// Selectors shared by injection and actions.
var (
	MediaSelector     = dom.MustCompile("img, video, .lightbox-image")
	ClickableSelector = dom.MustCompile(".clickableImage, .rightClickableImage")
	ItemSelector      = dom.MustCompile(".clickableImageContainer")
	FormSelector      = dom.MustCompile(".window-content form")
	ContentSelector   = dom.MustCompile(".window-content")
	ControlsDelegate  = dom.MustCompile(".clickableImageControls [data-action]")
)

// FadeVariable is the style property that carries the fade opacity.
const FadeVariable = "--journal-fade"

// Sheet is a rendered document sheet.
type Sheet struct {
	id           string
	documentName string
	root         *dom.Element
}

// New creates a sheet. documentName is the document class name, such as
// "JournalEntry" or "Actor".
func New(id, documentName string, root *dom.Element) *Sheet {
	return &Sheet{id: id, documentName: documentName, root: root}
}

// ID implements action.Surface.
func (s *Sheet) ID() string { return s.id }

// DocumentName returns the document class name.
func (s *Sheet) DocumentName() string { return s.documentName }

// DocumentType returns the document name with its first letter lowered,
// the key used in the sheet-type choices.
func (s *Sheet) DocumentType() string {
	return lowerFirst(s.documentName)
}

// Root returns the sheet's root element.
func (s *Sheet) Root() *dom.Element { return s.root }

// ImageClass returns the class given to media on this sheet.
func (s *Sheet) ImageClass() string {
	if s.DocumentType() == TypeJournalEntry {
		return ClassClickableImage
	}
	return ClassRightClickableImage
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

var appSelector = dom.MustCompile(".app")

// Find returns the first element with the "app" class in doc, or doc itself.
func Find(doc *dom.Element) *dom.Element {
	if found := doc.Query(appSelector); found != nil {
		return found
	}
	return doc
}

// DocumentNameFromClasses guesses the document name from the sheet's
// classes, e.g. "journal-sheet" gives "JournalEntry".
func DocumentNameFromClasses(root *dom.Element) string {
	for _, c := range root.Classes() {
		switch strings.TrimSuffix(c, "-sheet") {
		case "journal":
			return "JournalEntry"
		case "actor":
			return "Actor"
		case "item":
			return "Item"
		}
	}
	return ""
}
