// Package luaactions declares actions in Lua scripts.
//
// A script assigns a global "actions" table. Nested string keys form the
// dot-separated action path; a table holding any of the functions onClick,
// onHover or onChange is a descriptor at that path:
//
//	actions = {
//	  widget = { click = { toggle = {
//	    onClick = function(event, ctx)
//	      local n = settings.get("counter", "count")
//	      settings.set("counter", { count = n + 1 })
//	    end,
//	  } } },
//	}
//
// Handlers receive an event table (type, target) and a context table
// (path, phase, surface, subject, control, item, primary). Element values
// are tables with methods: attr, set_attr, has_class, add_class,
// remove_class, toggle_class, value, text, set_text.
//
// The state is sandboxed: no io, os, debug or module loading.
package luaactions

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/config"
	"github.com/dshills/sheetcontrols/internal/dom"
)

var (
	// ErrClosed is returned when a handler runs after Close.
	ErrClosed = errors.New("lua script closed")

	// ErrNoActions is returned when a script does not define an actions table.
	ErrNoActions = errors.New("script defines no actions table")
)

// ScriptError wraps a failure raised inside Lua code.
type ScriptError struct {
	Script string
	Path   string
	Err    error
}

func (e *ScriptError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("lua %s: %v", e.Script, e.Err)
	}
	return fmt.Sprintf("lua %s: action %s: %v", e.Script, e.Path, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// Logger receives messages from the script's log module.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// Option configures a Script.
type Option func(*Script)

// WithStore exposes store through the script's settings module.
func WithStore(store *config.Store) Option {
	return func(s *Script) { s.store = store }
}

// WithLogger sets the logger behind the script's log module.
func WithLogger(l Logger) Option {
	return func(s *Script) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTimeout bounds each handler call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Script) { s.timeout = d }
}

// Script is a loaded Lua action script.
type Script struct {
	name    string
	state   *state
	store   *config.Store
	logger  Logger
	timeout time.Duration
	actions map[string]map[action.Phase]*lua.LFunction
}

// LoadFile reads and loads a script from disk.
func LoadFile(path string, opts ...Option) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lua script: %w", err)
	}
	return Load(path, string(src), opts...)
}

// Load runs src in a fresh sandboxed state and collects its actions.
func Load(name, src string, opts ...Option) (*Script, error) {
	s := &Script{
		name:    name,
		logger:  nopLogger{},
		timeout: DefaultTimeout,
		actions: make(map[string]map[action.Phase]*lua.LFunction),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.state = newState(s.timeout)
	s.installModules(s.state.L)

	err := s.state.run(func(L *lua.LState) error {
		if err := L.DoString(src); err != nil {
			return err
		}
		tbl, ok := L.GetGlobal("actions").(*lua.LTable)
		if !ok {
			return ErrNoActions
		}
		return s.collect(tbl, nil)
	})
	if err != nil {
		s.state.close()
		return nil, &ScriptError{Script: name, Err: err}
	}
	return s, nil
}

// collect walks tbl, recording descriptors by path.
func (s *Script) collect(tbl *lua.LTable, prefix []string) error {
	handlers := make(map[action.Phase]*lua.LFunction)
	for _, p := range action.Phases {
		if fn, ok := tbl.RawGetString(handlerField(p)).(*lua.LFunction); ok {
			handlers[p] = fn
		}
	}
	if len(handlers) > 0 {
		if len(prefix) == 0 {
			return errors.New("handlers declared at the top of the actions table")
		}
		s.actions[strings.Join(prefix, ".")] = handlers
		return nil
	}

	var err error
	tbl.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		child, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		path := append(append([]string(nil), prefix...), string(key))
		err = s.collect(child, path)
	})
	return err
}

func handlerField(p action.Phase) string {
	switch p {
	case action.PhaseClick:
		return "onClick"
	case action.PhaseHover:
		return "onHover"
	case action.PhaseChange:
		return "onChange"
	default:
		return ""
	}
}

// Name returns the script name given to Load.
func (s *Script) Name() string { return s.name }

// Paths returns the declared action paths in sorted order.
func (s *Script) Paths() []string {
	paths := make([]string, 0, len(s.actions))
	for p := range s.actions {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Register adds every declared action to b.
func (s *Script) Register(b *action.Builder) error {
	var errs []error
	for _, path := range s.Paths() {
		d := action.Define()
		for phase, fn := range s.actions[path] {
			d = d.On(phase, s.handler(path, fn))
		}
		if err := b.Register(path, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the Lua state. Handlers fail with ErrClosed afterwards.
func (s *Script) Close() {
	s.state.close()
}

func (s *Script) handler(path string, fn *lua.LFunction) action.Handler {
	return func(ev *dom.Event, ctx *action.Context) error {
		err := s.state.run(func(L *lua.LState) error {
			return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
				eventTable(L, ev), contextTable(L, ctx))
		})
		if err != nil {
			return &ScriptError{Script: s.name, Path: path, Err: err}
		}
		return nil
	}
}
