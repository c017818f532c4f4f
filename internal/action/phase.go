package action

import "github.com/dshills/sheetcontrols/internal/dom"

// Phase is an interaction lifecycle with its own handler slot.
type Phase uint8

const (
	// PhaseClick fires on click.
	PhaseClick Phase = iota
	// PhaseHover fires on pointer enter and leave.
	PhaseHover
	// PhaseChange fires when a form control commits a value.
	PhaseChange

	phaseCount
)

// Phases lists every phase in declaration order.
var Phases = []Phase{PhaseClick, PhaseHover, PhaseChange}

// String returns the handler slot name.
func (p Phase) String() string {
	switch p {
	case PhaseClick:
		return "onClick"
	case PhaseHover:
		return "onHover"
	case PhaseChange:
		return "onChange"
	default:
		return "unknown"
	}
}

// Attribute returns the element attribute that carries the action path
// for this phase.
func (p Phase) Attribute() string {
	switch p {
	case PhaseClick:
		return "data-action"
	case PhaseHover:
		return "data-hover-action"
	case PhaseChange:
		return "data-change-action"
	default:
		return ""
	}
}

// Events returns the native event types that trigger this phase.
func (p Phase) Events() []string {
	switch p {
	case PhaseClick:
		return []string{dom.EventClick}
	case PhaseHover:
		return []string{dom.EventMouseEnter, dom.EventMouseLeave}
	case PhaseChange:
		return []string{dom.EventChange}
	default:
		return nil
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p < phaseCount
}

// ParsePhase maps a handler slot name ("onClick") to its phase.
func ParsePhase(name string) (Phase, bool) {
	for _, p := range Phases {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}
