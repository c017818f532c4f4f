// Package binder wires surfaces to the dispatcher.
//
// A surface is bound by key. Binding a key again releases every listener
// the previous binding installed, even if the surface was re-rendered into
// a new container, before attaching fresh ones. Only phases whose action
// attribute appears somewhere in the container are attached.
package binder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/dispatch"
	"github.com/dshills/sheetcontrols/internal/dom"
)

// ErrEmptyKey indicates a surface without a key.
var ErrEmptyKey = errors.New("binder: surface key is empty")

// Logger is the logging surface the binder needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

// Surface is a rendered control group ready to be bound.
type Surface struct {
	// Key identifies the surface across re-renders.
	Key string

	// Container is the element the listeners go on.
	Container *dom.Element

	// Resolver describes item resolution for the container's controls.
	Resolver dispatch.Resolver

	// Delegates optionally narrows the eligible controls per phase,
	// overriding Resolver.Delegate.
	Delegates map[action.Phase]*dom.Selector
}

func (s Surface) resolverFor(p action.Phase) dispatch.Resolver {
	r := s.Resolver
	if sel, ok := s.Delegates[p]; ok {
		r.Delegate = sel
	}
	return r
}

// Token records what one BindSurface call installed.
type Token struct {
	ID       uuid.UUID
	Key      string
	Phases   []action.Phase
	bindings []*dispatch.Binding
}

// Binder tracks the bindings of each surface.
type Binder struct {
	dispatcher *dispatch.Dispatcher
	logger     Logger

	mu     sync.Mutex
	tokens map[string]*Token
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(b *Binder) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a binder over d.
func New(d *dispatch.Dispatcher, opts ...Option) *Binder {
	b := &Binder{
		dispatcher: d,
		logger:     nopLogger{},
		tokens:     make(map[string]*Token),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PhasesIn returns the phases whose action attribute is carried by
// container or any of its descendants.
func PhasesIn(container *dom.Element) []action.Phase {
	found := make(map[action.Phase]bool, len(action.Phases))
	container.Walk(func(el *dom.Element) bool {
		for _, p := range action.Phases {
			if el.HasAttr(p.Attribute()) {
				found[p] = true
			}
		}
		return len(found) < len(action.Phases)
	})

	var out []action.Phase
	for _, p := range action.Phases {
		if found[p] {
			out = append(out, p)
		}
	}
	return out
}

// BindSurface releases the surface's previous binding and attaches the
// phases present in its container.
func (b *Binder) BindSurface(s Surface) (*Token, error) {
	if s.Key == "" {
		return nil, ErrEmptyKey
	}
	if s.Container == nil {
		return nil, dispatch.ErrNilContainer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.tokens[s.Key]; ok {
		b.release(prev)
	}

	tok := &Token{ID: uuid.New(), Key: s.Key}
	for _, p := range PhasesIn(s.Container) {
		binding, err := b.dispatcher.Attach(s.Container, p, s.resolverFor(p))
		if err != nil {
			b.release(tok)
			return nil, fmt.Errorf("bind %s: %w", s.Key, err)
		}
		tok.bindings = append(tok.bindings, binding)
		tok.Phases = append(tok.Phases, p)
	}
	b.tokens[s.Key] = tok

	b.logger.Debug("surface bound", "surface", s.Key, "token", tok.ID, "phases", len(tok.Phases))
	return tok, nil
}

// Unbind releases the surface's binding and reports whether one existed.
func (b *Binder) Unbind(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	tok, ok := b.tokens[key]
	if !ok {
		return false
	}
	b.release(tok)
	delete(b.tokens, key)
	return true
}

// Token returns the current token for key.
func (b *Binder) Token(key string) (*Token, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tok, ok := b.tokens[key]
	return tok, ok
}

// Len returns the number of bound surfaces.
func (b *Binder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tokens)
}

// Close releases every surface.
func (b *Binder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, tok := range b.tokens {
		b.release(tok)
		delete(b.tokens, key)
	}
}

func (b *Binder) release(tok *Token) {
	for _, binding := range tok.bindings {
		b.dispatcher.Release(binding)
	}
	tok.bindings = nil
}
