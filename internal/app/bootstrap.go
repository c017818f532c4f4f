package app

import (
	"context"
	"os"

	"github.com/dshills/sheetcontrols/internal/action"
	"github.com/dshills/sheetcontrols/internal/action/luaactions"
	"github.com/dshills/sheetcontrols/internal/binder"
	"github.com/dshills/sheetcontrols/internal/config"
	"github.com/dshills/sheetcontrols/internal/config/loader"
	"github.com/dshills/sheetcontrols/internal/config/notify"
	"github.com/dshills/sheetcontrols/internal/config/persist"
	"github.com/dshills/sheetcontrols/internal/config/watcher"
	"github.com/dshills/sheetcontrols/internal/dispatch"
	"github.com/dshills/sheetcontrols/internal/logging"
	"github.com/dshills/sheetcontrols/internal/render"
	"github.com/dshills/sheetcontrols/internal/sheet"
)

// OriginFile is the broadcast origin of values read from the settings file.
const OriginFile = "settingsFile"

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Logging
	if app.logger == nil {
		cfg := logging.DefaultConfig()
		cfg.Level = logging.ParseLevel(app.opts.LogLevel)
		cfg.Output = os.Stderr
		app.logger = logging.New(cfg)
	}

	// 2. Persistence
	if err := app.initBackends(); err != nil {
		return &InitError{Component: "persistence", Err: err}
	}

	// 3. Settings store
	if err := app.initStore(); err != nil {
		return &InitError{Component: "settings", Err: err}
	}

	// 4. Actions
	if err := app.initActions(); err != nil {
		return &InitError{Component: "actions", Err: err}
	}

	// 5. Dispatch, binding and rendering
	app.dispatcher = dispatch.New(app.registry, dispatch.WithLogger(app.logger.WithComponent("dispatch")))
	app.binder = binder.New(app.dispatcher, binder.WithLogger(app.logger.WithComponent("binder")))

	r, err := render.New(render.WithLocale(app.opts.Locale))
	if err != nil {
		return &InitError{Component: "renderer", Err: err}
	}
	app.renderer = r

	// 6. Sheet injector
	in, err := sheet.NewInjector(app.store, app.renderer, app.binder, app.environment(),
		sheet.WithLogger(app.logger.WithComponent("sheet")),
		sheet.WithReporter(app.report),
	)
	if err != nil {
		return &InitError{Component: "injector", Err: err}
	}
	app.injector = in

	// 7. Settings file overrides and live reload
	if err := app.loadSettingsFile(); err != nil {
		return &InitError{Component: "settings file", Err: err}
	}
	if app.opts.Watch && app.opts.SettingsPath != "" {
		if err := app.startWatcher(); err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
	}

	app.logger.Info("application started",
		"actions", app.registry.Len(),
		"groups", len(app.store.Groups()),
	)
	return nil
}

func (app *Application) initBackends() error {
	if app.backends.Client != nil || app.backends.World != nil {
		return nil
	}
	client := persist.NewMemory()
	if app.opts.InMemory {
		app.backends = persist.Router{Client: client, World: persist.NewMemory()}
		return nil
	}

	path := app.opts.DBPath
	if path == "" {
		var err error
		if path, err = persist.DefaultDBPath(); err != nil {
			return err
		}
	}
	world, err := persist.OpenSQLite(path)
	if err != nil {
		return err
	}
	app.backends = persist.Router{Client: client, World: world}
	app.logger.Debug("settings database opened", "path", path)
	return nil
}

func (app *Application) initStore() error {
	log := app.logger.WithComponent("config")
	app.store = config.New(
		config.WithPersistence(app.backends),
		config.WithLogger(log),
	)
	if err := sheet.RegisterSettings(app.store); err != nil {
		return err
	}
	for _, g := range app.groups {
		if err := app.store.Register(g); err != nil {
			return err
		}
	}
	app.store.Bus().SubscribeAll(func(c notify.Change) {
		app.metrics.RecordSettingChange()
		log.Debug("broadcast", "event", c.Name, "group", c.Group, "origin", c.Origin)
	})
	return nil
}

func (app *Application) initActions() error {
	if app.displayer == nil {
		app.displayer = sheet.NewLogDisplayer(app.logger.WithComponent("display"))
	}

	b := action.NewBuilder()
	if err := sheet.RegisterActions(b, sheet.Deps{Store: app.store, Displayer: app.displayer}); err != nil {
		return err
	}
	for _, fn := range app.extra {
		if err := fn(b, app.store); err != nil {
			return err
		}
	}
	for _, path := range app.opts.Scripts {
		script, err := luaactions.LoadFile(path,
			luaactions.WithStore(app.store),
			luaactions.WithLogger(app.logger.WithComponent("lua").WithField("script", path)),
		)
		if err != nil {
			return err
		}
		app.scripts = append(app.scripts, script)
		if err := script.Register(b); err != nil {
			return err
		}
	}
	app.registry = b.Build()
	return nil
}

func (app *Application) environment() sheet.Environment {
	var tiles []render.Tile
	for _, pair := range app.opts.Tiles {
		id, name, _ := splitPair(pair)
		tiles = append(tiles, render.Tile{ID: id, Name: name})
	}
	var users []render.User
	for _, pair := range app.opts.Users {
		id, name, _ := splitPair(pair)
		users = append(users, render.User{ID: id, Name: name})
	}
	return sheet.Environment{
		IsGM:      app.opts.GM,
		SceneName: app.opts.Scene,
		Tiles:     func() []render.Tile { return tiles },
		Users:     func() []render.User { return users },
	}
}

func (app *Application) loadSettingsFile() error {
	if app.opts.SettingsPath == "" {
		return nil
	}
	app.loader = loader.New()
	return app.applySettingsFile()
}

// applySettingsFile reads the settings file and applies every group it
// names. A missing file applies nothing.
func (app *Application) applySettingsFile() error {
	values, err := app.loader.Load(app.opts.SettingsPath)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	if err := app.store.Apply(OriginFile, values); err != nil {
		return err
	}
	app.logger.Info("settings file applied", "path", app.opts.SettingsPath, "groups", len(values))
	return nil
}

func (app *Application) startWatcher() error {
	log := app.logger.WithComponent("watcher")
	w, err := watcher.New(watcher.WithErrorHandler(func(err error) {
		log.Warn("watch error", "error", err)
	}))
	if err != nil {
		return err
	}
	if err := w.Watch(app.opts.SettingsPath); err != nil {
		w.Close()
		return err
	}
	w.OnChange(app.onSettingsFileChange)

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.watcher = w
	w.Start(ctx)
	return nil
}

func (app *Application) onSettingsFileChange(ev watcher.Event) {
	if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
		app.logger.Debug("settings file gone, keeping current values", "path", ev.Path)
		return
	}
	err := app.applySettingsFile()
	app.metrics.RecordReload(err)
	if err != nil {
		app.logger.Warn("settings reload failed", "path", ev.Path, "error", err)
	}
}

// Reload re-reads the settings file.
func (app *Application) Reload() error {
	if app.closed.Load() {
		return ErrClosed
	}
	if app.loader == nil {
		return nil
	}
	err := app.applySettingsFile()
	app.metrics.RecordReload(err)
	if err != nil {
		return &OperationError{Op: "reload", Target: app.opts.SettingsPath, Err: err}
	}
	return nil
}
