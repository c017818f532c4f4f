// Package main is the entry point for sheetctl, which injects interactive
// controls into sheet documents and replays interactions against them.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/sheetcontrols/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type config struct {
	opts         app.Options
	interactions []app.Interaction
	sets         [][2]string
	gets         []string
	outPath      string
	files        []string
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, code, ok := parseFlags()
	if !ok {
		return code
	}

	application, err := app.New(cfg.opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	out := io.Writer(os.Stdout)
	if cfg.outPath != "" {
		f, err := os.Create(cfg.outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
		out = f
	}

	for _, kv := range cfg.sets {
		if err := application.SetPath(kv[0], kv[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	status := 0
	for _, path := range cfg.files {
		if err := process(application, path, cfg.interactions, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = 1
		}
	}

	for _, path := range cfg.gets {
		res, err := application.Query(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = 1
			continue
		}
		fmt.Fprintf(out, "%s = %s\n", path, res.Raw)
	}

	if cfg.opts.Watch && status == 0 {
		fmt.Fprintln(os.Stderr, "watching settings; press Ctrl-C to exit")
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		<-signals
	}

	snap := application.Metrics().Snapshot()
	application.Logger().Info("done",
		"sheets", snap.SheetsApplied,
		"interactions", snap.Interactions,
		"errors", snap.InteractionErrors+snap.ReportedErrors,
	)
	return status
}

func process(application *app.Application, path string, interactions []app.Interaction, out io.Writer) error {
	s, res, err := application.OpenFile(path)
	if err != nil {
		return err
	}
	if !res.Applied {
		fmt.Fprintf(os.Stderr, "%s: skipped (%s)\n", path, res.Reason)
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s: sheet %s, %d image(s), sheet controls %v\n",
		path, s.ID(), res.Images, res.SheetControls)

	for _, in := range interactions {
		if err := application.Interact(s.ID(), in); err != nil {
			return err
		}
	}

	html, err := application.Render(s.ID())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, html)
	return err
}

// parseFlags builds the configuration. ok is false when the program should
// exit with code.
func parseFlags() (cfg config, code int, ok bool) {
	opts, err := app.OptionsFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, 1, false
	}

	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.SettingsPath, "settings", opts.SettingsPath, "Settings override file (TOML or YAML)")
	flag.StringVar(&opts.SettingsPath, "s", opts.SettingsPath, "Settings override file (shorthand)")
	flag.StringVar(&opts.DBPath, "db", opts.DBPath, "SQLite database for world settings")
	flag.BoolVar(&opts.InMemory, "memory", opts.InMemory, "Keep settings in memory only")
	flag.BoolVar(&opts.Watch, "watch", opts.Watch, "Reload the settings file on change")
	flag.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.Locale, "locale", opts.Locale, "Locale for control labels")
	flag.BoolVar(&opts.GM, "gm", opts.GM, "Act as game master")
	flag.StringVar(&opts.Scene, "scene", opts.Scene, "Name of the viewed scene")
	flag.Func("script", "Lua actions script (repeatable)", func(v string) error {
		opts.Scripts = append(opts.Scripts, v)
		return nil
	})
	flag.Func("tile", "Display tile as id=name (repeatable)", func(v string) error {
		opts.Tiles = append(opts.Tiles, v)
		return nil
	})
	flag.Func("user", "Recipient as id=name (repeatable)", func(v string) error {
		opts.Users = append(opts.Users, v)
		return nil
	})
	flag.Func("do", "Interaction kind:selector or change:selector=value (repeatable)", func(v string) error {
		in, err := app.ParseInteraction(v)
		if err != nil {
			return err
		}
		cfg.interactions = append(cfg.interactions, in)
		return nil
	})
	flag.Func("set", "Assign a setting as path=json (repeatable)", func(v string) error {
		path, value, err := app.ParseAssignment(v)
		if err != nil {
			return err
		}
		cfg.sets = append(cfg.sets, [2]string{path, value})
		return nil
	})
	flag.Func("get", "Print a setting by path (repeatable)", func(v string) error {
		cfg.gets = append(cfg.gets, v)
		return nil
	})
	flag.StringVar(&cfg.outPath, "o", "", "Write rendered sheets to this file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sheetctl - inject image and sheet controls into sheet documents\n\n")
		fmt.Fprintf(os.Stderr, "Usage: sheetctl [options] document.html...\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables SHEETCTL_* provide defaults for the options.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  sheetctl journal.html\n")
		fmt.Fprintf(os.Stderr, "  sheetctl -memory -do 'click:img' -do 'change:#sheet-fade-opacity=30' journal.html\n")
		fmt.Fprintf(os.Stderr, "  sheetctl -script extra.lua -settings settings.toml -watch actor.html\n")
		fmt.Fprintf(os.Stderr, "  sheetctl -set artGallerySettings.sheetSettings.modularChoices.actor=false -get artGallerySettings\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		return cfg, 0, false
	}

	if showVersion {
		fmt.Printf("sheetctl %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return cfg, 0, false
	}

	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, 1, false
	}

	cfg.files = flag.Args()
	if len(cfg.files) == 0 && len(cfg.gets) == 0 && len(cfg.sets) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no documents given")
		flag.Usage()
		return cfg, 1, false
	}

	cfg.opts = opts
	return cfg, 0, true
}
