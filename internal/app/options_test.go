package app

import (
	"errors"
	"reflect"
	"testing"
)

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("SHEETCTL_SETTINGS", "/etc/sheetctl/settings.toml")
	t.Setenv("SHEETCTL_SCRIPTS", "a.lua,b.lua")
	t.Setenv("SHEETCTL_WATCH", "true")
	t.Setenv("SHEETCTL_GM", "false")
	t.Setenv("SHEETCTL_USERS", "u1=Ada,u2=Bo")

	opts, err := OptionsFromEnv()
	if err != nil {
		t.Fatalf("OptionsFromEnv: %v", err)
	}
	if opts.SettingsPath != "/etc/sheetctl/settings.toml" || !opts.Watch || opts.GM {
		t.Errorf("opts = %+v", opts)
	}
	if !reflect.DeepEqual(opts.Scripts, []string{"a.lua", "b.lua"}) {
		t.Errorf("Scripts = %v", opts.Scripts)
	}
	if opts.LogLevel != "info" || opts.Locale != "en-US" {
		t.Errorf("defaults = %q, %q", opts.LogLevel, opts.Locale)
	}
	if len(opts.Users) != 2 {
		t.Errorf("Users = %v", opts.Users)
	}
}

func TestOptionsFromEnv_BadValue(t *testing.T) {
	t.Setenv("SHEETCTL_WATCH", "maybe")
	if _, err := OptionsFromEnv(); err == nil {
		t.Error("OptionsFromEnv() should reject a non-boolean")
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"zero", Options{}, false},
		{"warn level", Options{LogLevel: "WARN"}, false},
		{"bad level", Options{LogLevel: "loud"}, true},
		{"pairs", Options{Tiles: []string{"t1=Left", "t2"}}, false},
		{"empty pair", Options{Users: []string{" "}}, true},
		{"missing id", Options{Users: []string{"=Ada"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitPair(t *testing.T) {
	tests := []struct {
		in, id, name string
	}{
		{"u1=Ada", "u1", "Ada"},
		{"u1", "u1", "u1"},
		{" u2 = Bo ", "u2", "Bo"},
		{"u3=", "u3", "u3"},
	}
	for _, tt := range tests {
		id, name, ok := splitPair(tt.in)
		if !ok || id != tt.id || name != tt.name {
			t.Errorf("splitPair(%q) = %q, %q, %v", tt.in, id, name, ok)
		}
	}
}

func TestParseInteraction(t *testing.T) {
	tests := []struct {
		in      string
		want    Interaction
		wantErr bool
	}{
		{"click:img", Interaction{Kind: KindClick, Selector: "img"}, false},
		{"HOVER:.clickableImage", Interaction{Kind: KindHover, Selector: ".clickableImage"}, false},
		{"change:#sheet-fade-opacity=30", Interaction{Kind: KindChange, Selector: "#sheet-fade-opacity", Value: "30"}, false},
		{"change:#x", Interaction{}, true},
		{"poke:img", Interaction{}, true},
		{"click", Interaction{}, true},
		{"click:", Interaction{}, true},
	}
	for _, tt := range tests {
		got, err := ParseInteraction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseInteraction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !errors.Is(err, ErrInvalidInteraction) {
				t.Errorf("ParseInteraction(%q) error %v is not ErrInvalidInteraction", tt.in, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseInteraction(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if got.String() != tt.in && tt.in != "HOVER:.clickableImage" {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}
