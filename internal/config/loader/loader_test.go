package loader

import (
	"errors"
	"io/fs"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestLoader_TOML(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/settings.toml", `
sheetFadeOpacity = 40
fadeSheetImages = "fadeBackground"

[artGallerySettings.sheetSettings.modularChoices]
actor = false
`)

	values, err := New(WithFS(memfs)).Load("/settings.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if values["sheetFadeOpacity"] != int64(40) {
		t.Errorf("sheetFadeOpacity = %v (%T), want 40", values["sheetFadeOpacity"], values["sheetFadeOpacity"])
	}
	if values["fadeSheetImages"] != "fadeBackground" {
		t.Errorf("fadeSheetImages = %v", values["fadeSheetImages"])
	}
	gallery := values["artGallerySettings"].(map[string]any)
	choices := gallery["sheetSettings"].(map[string]any)["modularChoices"].(map[string]any)
	if choices["actor"] != false {
		t.Errorf("actor = %v, want false", choices["actor"])
	}
}

func TestLoader_YAML(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/settings.yaml", `
showWelcomeMessage: false
artGallerySettings:
  sheetSettings:
    modularChoices:
      item: false
`)

	values, err := New(WithFS(memfs)).Load("/settings.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if values["showWelcomeMessage"] != false {
		t.Errorf("showWelcomeMessage = %v", values["showWelcomeMessage"])
	}
	gallery, ok := values["artGallerySettings"].(map[string]any)
	if !ok {
		t.Fatalf("artGallerySettings = %T, want map[string]any", values["artGallerySettings"])
	}
	if _, ok := gallery["sheetSettings"].(map[string]any); !ok {
		t.Errorf("nested YAML map not normalized: %T", gallery["sheetSettings"])
	}
}

func TestLoader_MissingFile(t *testing.T) {
	values, err := New(WithFS(NewMemFS())).Load("/nope.toml")
	if err != nil || values != nil {
		t.Errorf("Load(missing) = %v, %v; want nil, nil", values, err)
	}
}

func TestLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "sheetFadeOpacity = = 3\n")
	memfs.AddFile("/bad.yaml", "a: [1, 2\n")

	for _, path := range []string{"/bad.toml", "/bad.yaml"} {
		_, err := New(WithFS(memfs)).Load(path)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Load(%s) error = %v, want *ParseError", path, err)
		}
		if pe.Path != path {
			t.Errorf("Path = %q, want %q", pe.Path, path)
		}
		if pe.Line == 0 {
			t.Errorf("%s: line not reported: %v", path, err)
		}
	}
}

func TestLoader_UnsupportedFormat(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/settings.ini", "a=1")

	l := New(WithFS(memfs))
	if l.Supports("/settings.ini") || !l.Supports("/x.YML") {
		t.Error("Supports() mismatch")
	}
	if _, err := l.Load("/settings.ini"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoader_Includes(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/conf/base.yaml", "sheetFadeOpacity: 10\nshowWelcomeMessage: false\n")
	memfs.AddFile("/conf/main.toml", `
"@include" = "base.yaml"
sheetFadeOpacity = 75
`)

	values, err := New(WithFS(memfs)).Load("/conf/main.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if values["sheetFadeOpacity"] != int64(75) {
		t.Errorf("main file should win, got %v", values["sheetFadeOpacity"])
	}
	if values["showWelcomeMessage"] != false {
		t.Error("included value missing")
	}
	if _, ok := values["@include"]; ok {
		t.Error("@include key should be removed")
	}
}

func TestLoader_IncludeCycle(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/a.toml", `"@include" = "b.toml"`)
	memfs.AddFile("/b.toml", `"@include" = "a.toml"`)

	if _, err := New(WithFS(memfs), WithMaxIncludeDepth(3)).Load("/a.toml"); err == nil {
		t.Error("expected include depth error")
	}
}

func TestLoader_CustomDecoder(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/x.conf", "ignored")

	l := New(WithFS(memfs), WithDecoder(".conf", func([]byte) (map[string]any, error) {
		return map[string]any{"flag": true}, nil
	}))
	values, err := l.Load("/x.conf")
	if err != nil || values["flag"] != true {
		t.Errorf("Load() = %v, %v", values, err)
	}
}
