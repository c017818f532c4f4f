// Package loader reads setting override files.
//
// An override file maps group names to partial updates. TOML and YAML are
// recognised by file extension:
//
//	sheetFadeOpacity = 40
//
//	[artGallerySettings.sheetSettings.modularChoices]
//	actor = false
//
// A file may pull in others with a top-level "@include" key holding a path
// or a list of paths, resolved relative to the including file. Included
// values have lower priority than the including file.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/sheetcontrols/internal/config/merge"
)

// DefaultMaxIncludeDepth bounds nested @include chains.
const DefaultMaxIncludeDepth = 8

// ErrUnsupportedFormat indicates a file extension with no decoder.
var ErrUnsupportedFormat = errors.New("loader: unsupported file format")

// FileSystem is the file access the loader needs.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

// Decoder turns file contents into a map.
type Decoder func(data []byte) (map[string]any, error)

// Loader loads override files through registered decoders.
type Loader struct {
	fs       FileSystem
	decoders map[string]Decoder
	maxDepth int
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS sets the file system.
func WithFS(fsys FileSystem) Option {
	return func(l *Loader) { l.fs = fsys }
}

// WithDecoder registers a decoder for a file extension such as ".json".
func WithDecoder(ext string, d Decoder) Option {
	return func(l *Loader) { l.decoders[strings.ToLower(ext)] = d }
}

// WithMaxIncludeDepth sets the include depth limit.
func WithMaxIncludeDepth(n int) Option {
	return func(l *Loader) { l.maxDepth = n }
}

// New creates a loader that understands TOML and YAML.
func New(opts ...Option) *Loader {
	l := &Loader{
		fs: OSFS{},
		decoders: map[string]Decoder{
			".toml": decodeTOML,
			".yaml": decodeYAML,
			".yml":  decodeYAML,
		},
		maxDepth: DefaultMaxIncludeDepth,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Supports reports whether path has a registered extension.
func (l *Loader) Supports(path string) bool {
	_, ok := l.decoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads path and its includes. A missing file returns nil, nil.
func (l *Loader) Load(path string) (map[string]any, error) {
	return l.load(path, l.maxDepth)
}

// Decode parses data as the format implied by name's extension.
func (l *Loader) Decode(name string, data []byte) (map[string]any, error) {
	dec, ok := l.decoders[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	out, err := dec(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = name
			return nil, pe
		}
		return nil, &ParseError{Path: name, Message: err.Error(), Err: err}
	}
	if out == nil {
		out = make(map[string]any)
	}
	normalized, _ := merge.Normalize(out).(map[string]any)
	return normalized, nil
}

func (l *Loader) load(path string, depth int) (map[string]any, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("include depth exceeded for %s", path)
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	values, err := l.Decode(path, data)
	if err != nil {
		return nil, err
	}

	includes, ok := values["@include"]
	if !ok {
		return values, nil
	}
	delete(values, "@include")

	list, err := includeList(includes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := make(map[string]any)
	for _, inc := range list {
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(filepath.Dir(path), inc)
		}
		incValues, err := l.load(incPath, depth-1)
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", incPath, err)
		}
		base = merge.Deep(base, incValues)
	}
	return merge.Deep(base, values), nil
}

func includeList(v any) ([]string, error) {
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("@include must be a string or list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("@include must be a string or list of strings, got %T", v)
	}
}

// ParseError represents an error while parsing an override file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
