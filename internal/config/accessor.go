package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/dshills/sheetcontrols/internal/config/schema"
)

// Bool returns a boolean at path within a group ("" for primitive groups).
func (s *Store) Bool(name, path string) (bool, error) {
	v, err := s.Lookup(name, path)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Group: name, Path: path, Expected: "bool", Actual: fmt.Sprintf("%T", v)}
	}
	return b, nil
}

// String returns a string at path within a group.
func (s *Store) String(name, path string) (string, error) {
	v, err := s.Lookup(name, path)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", &TypeError{Group: name, Path: path, Expected: "string", Actual: fmt.Sprintf("%T", v)}
	}
	return str, nil
}

// Float returns a number at path within a group.
func (s *Store) Float(name, path string) (float64, error) {
	v, err := s.Lookup(name, path)
	if err != nil {
		return 0, err
	}
	f, ok := schema.ToFloat(v)
	if !ok {
		return 0, &TypeError{Group: name, Path: path, Expected: "number", Actual: fmt.Sprintf("%T", v)}
	}
	return f, nil
}

// Int returns a number at path within a group, truncated toward zero.
// Persisted numbers decode as float64, so both forms are accepted.
func (s *Store) Int(name, path string) (int, error) {
	f, err := s.Float(name, path)
	if err != nil {
		return 0, err
	}
	return int(math.Trunc(f)), nil
}

// Record returns a record group's value, or the record at path within it.
func (s *Store) Record(name, path string) (map[string]any, error) {
	v, err := s.Lookup(name, path)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &TypeError{Group: name, Path: path, Expected: "record", Actual: fmt.Sprintf("%T", v)}
	}
	return m, nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
