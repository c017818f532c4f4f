// Package config implements the configuration store: a set of named
// setting groups whose values are read synchronously and whose changes are
// broadcast on a shared bus.
//
// Groups are registered first. The first Get or Set closes registration.
// Every write goes through Set, which validates the update against the
// group's shape, merges it into the current value, persists the result and
// only then broadcasts it. Readers calling Get from a broadcast observer
// see the committed value.
package config

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dshills/sheetcontrols/internal/config/merge"
	"github.com/dshills/sheetcontrols/internal/config/notify"
	"github.com/dshills/sheetcontrols/internal/config/persist"
	"github.com/dshills/sheetcontrols/internal/config/schema"
)

// Logger is the logging surface the store needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

type group struct {
	def   schema.Group
	value any
}

// Store holds setting groups.
type Store struct {
	mu       sync.RWMutex
	groups   map[string]*group
	order    []string
	sealed   atomic.Bool
	bus      *notify.Bus
	backends persist.Router
	logger   Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBus shares an existing bus instead of creating one.
func WithBus(bus *notify.Bus) Option {
	return func(s *Store) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithPersistence sets the persistence backends.
func WithPersistence(r persist.Router) Option {
	return func(s *Store) {
		s.backends = r
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		groups: make(map[string]*group),
		bus:    notify.New(),
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus returns the broadcast bus.
func (s *Store) Bus() *notify.Bus { return s.bus }

// Register adds a group. A persisted value for the group, if any, is
// merged over the default. onChange observers, when given, are subscribed
// before any other listener.
func (s *Store) Register(def schema.Group, onChange ...notify.Observer) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed.Load() {
		return fmt.Errorf("%w: %s", ErrRegistrationClosed, def.Name)
	}
	if _, exists := s.groups[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrGroupAlreadyRegistered, def.Name)
	}

	def.Default = merge.Normalize(merge.CloneValue(def.Default))
	value, err := s.loadPersisted(&def)
	if err != nil {
		return err
	}

	s.groups[def.Name] = &group{def: def, value: value}
	s.order = append(s.order, def.Name)

	for _, obs := range onChange {
		if obs != nil {
			s.bus.Subscribe(def.EventName(), obs)
		}
	}
	return nil
}

// MustRegister registers a group and panics on error.
// Useful for built-in groups registered at startup.
func (s *Store) MustRegister(def schema.Group, onChange ...notify.Observer) {
	if err := s.Register(def, onChange...); err != nil {
		panic(err)
	}
}

func (s *Store) loadPersisted(def *schema.Group) (any, error) {
	backend := s.backends.For(def.Scope)
	if backend == nil {
		return merge.CloneValue(def.Default), nil
	}

	stored, found, err := backend.Read(def.Name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", def.Name, err)
	}
	if !found {
		return merge.CloneValue(def.Default), nil
	}

	stored = merge.Normalize(stored)
	if err := def.CheckUpdate(stored); err != nil {
		s.logger.Warn("ignoring persisted value", "group", def.Name, "error", err)
		return merge.CloneValue(def.Default), nil
	}
	return combine(def, def.Default, stored), nil
}

// combine applies update over current according to the group kind.
func combine(def *schema.Group, current, update any) any {
	if def.Kind == schema.KindRecord {
		cur, _ := current.(map[string]any)
		upd, _ := update.(map[string]any)
		return merge.Deep(cur, upd)
	}
	return merge.CloneValue(update)
}

// Get returns a copy of the group's current value.
func (s *Store) Get(name string) (any, error) {
	s.seal()

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}
	return merge.CloneValue(g.value), nil
}

// Lookup returns the value at a dot-separated path inside a record group.
func (s *Store) Lookup(name, path string) (any, error) {
	v, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return v, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrPathNotFound, name, path)
	}
	got, found := merge.Get(m, path)
	if !found {
		return nil, fmt.Errorf("%w: %s.%s", ErrPathNotFound, name, path)
	}
	return got, nil
}

// Set applies a partial update attributed to the group's own origin.
func (s *Store) Set(name string, partial any) error {
	return s.SetFrom("", name, partial)
}

// SetFrom applies a partial update and broadcasts it with the given origin.
// An empty origin uses the group's origin name.
//
// Record updates are merged key-wise into the current value. An update
// that fails shape validation, or that cannot be persisted, leaves the
// value unchanged and is not broadcast.
func (s *Store) SetFrom(origin, name string, partial any) error {
	s.seal()
	partial = merge.Normalize(partial)

	s.mu.Lock()
	g, ok := s.groups[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}
	if err := g.def.CheckUpdate(partial); err != nil {
		s.mu.Unlock()
		return err
	}

	next := combine(&g.def, g.value, partial)
	if backend := s.backends.For(g.def.Scope); backend != nil {
		if err := backend.Write(name, next); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persist %s: %w", name, err)
		}
	}
	g.value = next
	def := g.def
	s.mu.Unlock()

	if origin == "" {
		origin = def.OriginName()
	}
	s.logger.Debug("setting changed", "group", name, "origin", origin)
	s.bus.Raise(def.EventName(), notify.Change{
		Group:      name,
		Origin:     origin,
		UpdateData: merge.CloneValue(next),
		Partial:    partial,
	})
	return nil
}

// OnChange subscribes fn to the group's broadcast event.
func (s *Store) OnChange(name string, fn notify.Observer) (*notify.Subscription, error) {
	s.mu.RLock()
	g, ok := s.groups[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}
	return s.bus.Subscribe(g.def.EventName(), fn), nil
}

// Definition returns a group's definition.
func (s *Store) Definition(name string) (schema.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[name]
	if !ok {
		return schema.Group{}, false
	}
	return g.def, true
}

// Groups returns the registered group names in registration order.
func (s *Store) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Apply sets several groups at once, in sorted name order, attributing each
// change to origin. Groups that fail are reported together; the others are
// still applied.
func (s *Store) Apply(origin string, values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := s.SetFrom(origin, name, values[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

func (s *Store) seal() {
	s.sealed.Store(true)
}
