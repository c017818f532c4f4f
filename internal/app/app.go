// Package app wires the control layer together: settings store and its
// persistence, action registry, dispatcher, binder, renderer and sheet
// injector. It owns their lifecycle.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/action/luaactions"
	"github.com/dshills/sheetcontrols/internal/binder"
	"github.com/dshills/sheetcontrols/internal/config"
	"github.com/dshills/sheetcontrols/internal/config/loader"
	"github.com/dshills/sheetcontrols/internal/config/persist"
	"github.com/dshills/sheetcontrols/internal/config/schema"
	"github.com/dshills/sheetcontrols/internal/config/watcher"
	"github.com/dshills/sheetcontrols/internal/dispatch"
	"github.com/dshills/sheetcontrols/internal/logging"
	"github.com/dshills/sheetcontrols/internal/render"
	"github.com/dshills/sheetcontrols/internal/sheet"
)

// ActionsFunc registers extra actions. It runs after the built-in actions.
type ActionsFunc func(b *action.Builder, store *config.Store) error

// Application is the central coordinator for all components.
type Application struct {
	opts    Options
	logger  *logging.Logger
	metrics *Metrics

	// Settings
	backends persist.Router
	store    *config.Store
	loader   *loader.Loader
	watcher  *watcher.Watcher

	// Actions
	groups   []schema.Group
	extra    []ActionsFunc
	scripts  []*luaactions.Script
	registry *action.Registry

	// Controls
	dispatcher *dispatch.Dispatcher
	binder     *binder.Binder
	renderer   *render.Renderer
	displayer  sheet.Displayer
	injector   *sheet.Injector

	mu     sync.Mutex
	sheets map[string]*sheet.Sheet
	order  []string
	cancel context.CancelFunc
	closed atomic.Bool
}

// Option customizes an Application beyond its Options.
type Option func(*Application)

// WithLogger sets the root logger.
func WithLogger(l *logging.Logger) Option {
	return func(app *Application) { app.logger = l }
}

// WithDisplayer sets where image display requests go.
func WithDisplayer(d sheet.Displayer) Option {
	return func(app *Application) { app.displayer = d }
}

// WithGroups registers additional setting groups.
func WithGroups(groups ...schema.Group) Option {
	return func(app *Application) { app.groups = append(app.groups, groups...) }
}

// WithActions registers additional actions.
func WithActions(fn ActionsFunc) Option {
	return func(app *Application) {
		if fn != nil {
			app.extra = append(app.extra, fn)
		}
	}
}

// WithBackends replaces the persistence backends chosen from Options.
func WithBackends(r persist.Router) Option {
	return func(app *Application) { app.backends = r }
}

// New creates an Application and starts its components.
func New(opts Options, options ...Option) (*Application, error) {
	if err := opts.Validate(); err != nil {
		return nil, &InitError{Component: "options", Err: err}
	}
	app := &Application{
		opts:    opts,
		metrics: NewMetrics(),
		sheets:  make(map[string]*sheet.Sheet),
	}
	for _, o := range options {
		o(app)
	}

	if err := app.bootstrap(); err != nil {
		app.Shutdown()
		return nil, err
	}
	return app, nil
}

// Options returns the options the application was built with.
func (app *Application) Options() Options { return app.opts }

// Logger returns the root logger.
func (app *Application) Logger() *logging.Logger { return app.logger }

// Metrics returns the activity counters.
func (app *Application) Metrics() *Metrics { return app.metrics }

// Store returns the settings store.
func (app *Application) Store() *config.Store { return app.store }

// Registry returns the action registry.
func (app *Application) Registry() *action.Registry { return app.registry }

// Binder returns the control binder.
func (app *Application) Binder() *binder.Binder { return app.binder }

// Injector returns the sheet injector.
func (app *Application) Injector() *sheet.Injector { return app.injector }

// Displayer returns the display collaborator.
func (app *Application) Displayer() sheet.Displayer { return app.displayer }

// Shutdown stops the watcher, releases every binding and closes the
// persistence backends. It is safe to call more than once.
func (app *Application) Shutdown() error {
	if !app.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if app.cancel != nil {
		app.cancel()
	}
	if app.watcher != nil {
		errs = append(errs, app.watcher.Close())
	}
	if app.injector != nil {
		app.injector.Close()
	}
	if app.binder != nil {
		app.binder.Close()
	}
	for _, s := range app.scripts {
		s.Close()
	}
	if app.store != nil {
		app.store.Bus().Close()
	}
	errs = append(errs, app.backends.Close())

	if err := errors.Join(errs...); err != nil {
		app.logger.Warn("shutdown", "error", err)
		return err
	}
	app.logger.Debug("shutdown complete")
	return nil
}

// report receives errors from asynchronous handlers.
func (app *Application) report(err error) {
	app.metrics.RecordReported()
	app.logger.WithComponent("actions").Error("action failed", "error", err)
}
