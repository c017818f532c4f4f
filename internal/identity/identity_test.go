package identity

import (
	"testing"

	"github.com/google/uuid"

	"github.com/dshills/sheetcontrols/internal/dom"
)

func TestSource(t *testing.T) {
	video := dom.NewElement("video")
	video.AppendChild(dom.NewElement("source", dom.A("src", "clips/intro.webm")))

	lightbox := dom.NewElement("div", dom.A("class", "lightbox-image"), dom.A("style", "background-image: url('art/map.jpg')"))

	tests := []struct {
		name string
		el   *dom.Element
		want string
	}{
		{"img", dom.NewElement("img", dom.A("src", "art/dragon.webp")), "art/dragon.webp"},
		{"video source", video, "clips/intro.webm"},
		{"data-src", dom.NewElement("img", dom.A("data-src", "lazy.png")), "lazy.png"},
		{"background", lightbox, "art/map.jpg"},
		{"none", dom.NewElement("img"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Source(tt.el); got != tt.want {
				t.Errorf("Source() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromSource_Stable(t *testing.T) {
	a := FromSource("worlds/demo/art/dragon.webp?v=2")
	b := FromSource("worlds/demo/./art/dragon.webp#top")
	if a != b {
		t.Errorf("identifiers differ: %s vs %s", a, b)
	}
	if a == FromSource("worlds/demo/art/wyvern.webp") {
		t.Error("different sources share an identifier")
	}
	id, err := uuid.Parse(a)
	if err != nil || id.Version() != 5 {
		t.Errorf("identifier %q is not a v5 UUID", a)
	}
}

func TestResolver_Caches(t *testing.T) {
	img := dom.NewElement("img", dom.A("src", "a.png"))
	r := NewResolver()
	first := r.Resolve(img)

	img.SetAttr("src", "b.png")
	if got := r.Resolve(img); got != first {
		t.Error("Resolve() should return the cached identifier")
	}
	if Of(img) == first {
		t.Error("Of() should reflect the changed source")
	}
	if Of(dom.NewElement("img")) != "" {
		t.Error("element without source should have empty identifier")
	}
}
