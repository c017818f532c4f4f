// Package schema defines setting groups: named units of configuration with
// a typed default, optional choices or range, a persistence scope and a
// broadcast event.
//
// A group's shape is fixed when it is defined. For record groups the shape
// is the key tree of the default value; updates may name any subset of
// those keys but never a new one.
package schema

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// Kind is the value type of a setting group.
type Kind uint8

const (
	// KindBool is a boolean value.
	KindBool Kind = iota
	// KindNumber is a numeric value, optionally range-limited.
	KindNumber
	// KindString is a free-form string.
	KindString
	// KindEnum is a string restricted to declared choices.
	KindEnum
	// KindRecord is a nested map with a fixed key tree.
	KindRecord
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Scope selects where a group is persisted.
type Scope uint8

const (
	// ScopeClient values are local to this process or user.
	ScopeClient Scope = iota
	// ScopeWorld values are shared by every user of the world.
	ScopeWorld
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeClient:
		return "client"
	case ScopeWorld:
		return "world"
	default:
		return "unknown"
	}
}

// Group defines one setting group.
type Group struct {
	// Name identifies the group within a store.
	Name string

	// Kind is the value type.
	Kind Kind

	// Default is the initial value. Record groups use map[string]any.
	Default any

	// Choices lists allowed values for enum groups.
	Choices []string

	// Min and Max bound number groups when set.
	Min *float64
	Max *float64

	// Step, when positive, requires number values to be a whole number of
	// steps above Min (or zero when Min is unset).
	Step float64

	// Label and Hint are human-readable metadata.
	Label string
	Hint  string

	// Scope selects the persistence backend.
	Scope Scope

	// Event is the broadcast event raised after a change. Defaults to
	// "settings.<Name>".
	Event string

	// Origin tags broadcasts raised for this group. Defaults to Name.
	Origin string
}

// Bound returns a pointer to f, for Min and Max.
func Bound(f float64) *float64 { return &f }

// EventName returns the broadcast event for the group.
func (g *Group) EventName() string {
	if g.Event != "" {
		return g.Event
	}
	return "settings." + g.Name
}

// OriginName returns the origin tag for broadcasts.
func (g *Group) OriginName() string {
	if g.Origin != "" {
		return g.Origin
	}
	return g.Name
}

// Validate checks the definition itself.
func (g *Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	switch g.Kind {
	case KindRecord:
		if _, ok := g.Default.(map[string]any); !ok {
			return fmt.Errorf("%w: %s: record default must be map[string]any, got %T", ErrInvalidDefinition, g.Name, g.Default)
		}
	case KindEnum:
		if len(g.Choices) == 0 {
			return fmt.Errorf("%w: %s: enum without choices", ErrInvalidDefinition, g.Name)
		}
	case KindBool, KindNumber, KindString:
	default:
		return fmt.Errorf("%w: %s: unknown kind %d", ErrInvalidDefinition, g.Name, g.Kind)
	}
	if g.Step < 0 || math.IsNaN(g.Step) {
		return fmt.Errorf("%w: %s: invalid step %v", ErrInvalidDefinition, g.Name, g.Step)
	}
	if g.Min != nil && g.Max != nil && *g.Min > *g.Max {
		return fmt.Errorf("%w: %s: min %v greater than max %v", ErrInvalidDefinition, g.Name, *g.Min, *g.Max)
	}
	if err := g.CheckUpdate(g.Default); err != nil {
		return fmt.Errorf("%w: %s: default rejected: %v", ErrInvalidDefinition, g.Name, err)
	}
	return nil
}

// CheckUpdate validates an update against the group's shape. For record
// groups the update is a partial record.
func (g *Group) CheckUpdate(value any) error {
	switch g.Kind {
	case KindBool:
		if _, ok := value.(bool); !ok {
			return shapeErr(g.Name, "", fmt.Sprintf("expected bool, got %T", value), value)
		}
	case KindString:
		if _, ok := value.(string); !ok {
			return shapeErr(g.Name, "", fmt.Sprintf("expected string, got %T", value), value)
		}
	case KindNumber:
		f, ok := ToFloat(value)
		if !ok {
			return shapeErr(g.Name, "", fmt.Sprintf("expected number, got %T", value), value)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return shapeErr(g.Name, "", "not a finite number", value)
		}
		if g.Min != nil && f < *g.Min {
			return shapeErr(g.Name, "", fmt.Sprintf("less than minimum %v", *g.Min), value)
		}
		if g.Max != nil && f > *g.Max {
			return shapeErr(g.Name, "", fmt.Sprintf("greater than maximum %v", *g.Max), value)
		}
		if g.Step > 0 && !onStep(f, g.Min, g.Step) {
			return shapeErr(g.Name, "", fmt.Sprintf("not a multiple of step %v", g.Step), value)
		}
	case KindEnum:
		s, ok := value.(string)
		if !ok || !slices.Contains(g.Choices, s) {
			return shapeErr(g.Name, "", fmt.Sprintf("must be one of %v", g.Choices), value)
		}
	case KindRecord:
		shape, _ := g.Default.(map[string]any)
		return checkRecord(g.Name, "", shape, value)
	}
	return nil
}

func onStep(f float64, min *float64, step float64) bool {
	base := 0.0
	if min != nil {
		base = *min
	}
	n := (f - base) / step
	return math.Abs(n-math.Round(n)) < 1e-9
}

// Keys returns the sorted top-level keys of a record group.
func (g *Group) Keys() []string {
	shape, ok := g.Default.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(shape))
	for k := range shape {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkRecord(group, prefix string, shape map[string]any, value any) error {
	update, ok := value.(map[string]any)
	if !ok {
		return shapeErr(group, prefix, fmt.Sprintf("expected record, got %T", value), value)
	}
	// Sorted for a deterministic first error.
	keys := make([]string, 0, len(update))
	for k := range update {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		def, known := shape[k]
		if !known {
			return shapeErr(group, path, "unknown key", update[k])
		}
		if err := checkLeaf(group, path, def, update[k]); err != nil {
			return err
		}
	}
	return nil
}

func checkLeaf(group, path string, def, v any) error {
	switch d := def.(type) {
	case nil:
		return nil
	case map[string]any:
		return checkRecord(group, path, d, v)
	case bool:
		if _, ok := v.(bool); !ok {
			return shapeErr(group, path, fmt.Sprintf("expected bool, got %T", v), v)
		}
	case string:
		if _, ok := v.(string); !ok {
			return shapeErr(group, path, fmt.Sprintf("expected string, got %T", v), v)
		}
	case []any:
		if _, ok := v.([]any); !ok {
			return shapeErr(group, path, fmt.Sprintf("expected list, got %T", v), v)
		}
	default:
		if IsNumber(def) && !IsNumber(v) {
			return shapeErr(group, path, fmt.Sprintf("expected number, got %T", v), v)
		}
		if f, ok := ToFloat(v); ok && IsNumber(def) && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return shapeErr(group, path, "not a finite number", v)
		}
	}
	return nil
}
