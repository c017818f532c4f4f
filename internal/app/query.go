package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// OriginCLI is the broadcast origin of values assigned with SetPath.
const OriginCLI = "cli"

// SettingsJSON returns every setting group's current value as one JSON
// object keyed by group name.
func (app *Application) SettingsJSON() ([]byte, error) {
	all := make(map[string]any)
	for _, name := range app.store.Groups() {
		v, err := app.store.Get(name)
		if err != nil {
			return nil, err
		}
		all[name] = v
	}
	return json.Marshal(all)
}

// Query evaluates a gjson path, e.g.
// "artGallerySettings.sheetSettings.modularChoices.actor", against the
// current settings.
func (app *Application) Query(path string) (gjson.Result, error) {
	data, err := app.SettingsJSON()
	if err != nil {
		return gjson.Result{}, err
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return res, fmt.Errorf("%w: %s", ErrNoSetting, path)
	}
	return res, nil
}

// SetPath assigns value at "group" or "group.key.subkey". Value is JSON;
// anything that does not parse as JSON is taken as a string.
func (app *Application) SetPath(path, value string) error {
	group, rest, _ := strings.Cut(path, ".")
	if group == "" {
		return fmt.Errorf("%w: %q", ErrNoSetting, path)
	}

	var partial any
	if rest == "" {
		if gjson.Valid(value) {
			if err := json.Unmarshal([]byte(value), &partial); err != nil {
				return err
			}
		} else {
			partial = value
		}
	} else {
		var (
			doc string
			err error
		)
		if gjson.Valid(value) {
			doc, err = sjson.SetRaw("", rest, value)
		} else {
			doc, err = sjson.Set("", rest, value)
		}
		if err != nil {
			return &OperationError{Op: "set", Target: path, Err: err}
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(doc), &m); err != nil {
			return &OperationError{Op: "set", Target: path, Err: err}
		}
		partial = m
	}

	if err := app.store.SetFrom(OriginCLI, group, partial); err != nil {
		return &OperationError{Op: "set", Target: path, Err: err}
	}
	return nil
}

// ParseAssignment splits "path=value".
func ParseAssignment(s string) (path, value string, err error) {
	path, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(path) == "" {
		return "", "", fmt.Errorf("invalid assignment %q (want path=value)", s)
	}
	return strings.TrimSpace(path), value, nil
}
