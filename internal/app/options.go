package app

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Options configures the application. Environment variables fill the
// defaults; command-line flags override them.
type Options struct {
	// SettingsPath is a TOML or YAML file of setting overrides.
	SettingsPath string `env:"SHEETCTL_SETTINGS"`

	// DBPath is the SQLite database for world-scoped settings. Empty uses
	// the XDG data directory.
	DBPath string `env:"SHEETCTL_DB"`

	// InMemory keeps every setting in memory only.
	InMemory bool `env:"SHEETCTL_IN_MEMORY"`

	// Scripts are Lua files declaring extra actions.
	Scripts []string `env:"SHEETCTL_SCRIPTS" envSeparator:","`

	// Watch reloads the settings file when it changes.
	Watch bool `env:"SHEETCTL_WATCH"`

	// LogLevel sets the logging verbosity.
	LogLevel string `env:"SHEETCTL_LOG_LEVEL" envDefault:"info"`

	// Locale selects the control labels.
	Locale string `env:"SHEETCTL_LOCALE" envDefault:"en-US"`

	// GM marks the current user as game master.
	GM bool `env:"SHEETCTL_GM" envDefault:"true"`

	// Scene is the name of the viewed scene.
	Scene string `env:"SHEETCTL_SCENE"`

	// Tiles are display tiles of the viewed scene as "id=name" pairs.
	Tiles []string `env:"SHEETCTL_TILES" envSeparator:","`

	// Users are candidate recipients as "id=name" pairs.
	Users []string `env:"SHEETCTL_USERS" envSeparator:","`
}

// OptionsFromEnv reads Options from the environment.
func OptionsFromEnv() (Options, error) {
	var opts Options
	if err := env.Parse(&opts); err != nil {
		return Options{}, fmt.Errorf("parse env: %w", err)
	}
	return opts, nil
}

// Validate checks option values.
func (o Options) Validate() error {
	switch strings.ToLower(o.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", o.LogLevel)
	}
	for _, pair := range append(append([]string(nil), o.Tiles...), o.Users...) {
		if _, _, ok := splitPair(pair); !ok {
			return fmt.Errorf("invalid id=name pair %q", pair)
		}
	}
	return nil
}

// splitPair splits "id=name". A bare value is used as both.
func splitPair(s string) (id, name string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	id, name, found := strings.Cut(s, "=")
	if !found {
		return s, s, true
	}
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" {
		return "", "", false
	}
	if name == "" {
		name = id
	}
	return id, name, true
}
