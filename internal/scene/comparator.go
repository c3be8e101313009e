// Package scene implements scene controllers: snapshots of tracked entity
// values, a comparator deriving an on/off state from live values, and the
// controller state machine that ties them to the poll cycle.
package scene

import (
	"github.com/durosity/lighttools/internal/device"
)

// State is the derived on/off state of a scene controller.
type State int

const (
	// StateUnknown means no snapshot has been saved yet.
	StateUnknown State = iota
	StateOff
	StateOn
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateOff:
		return "off"
	case StateOn:
		return "on"
	default:
		return "invalid"
	}
}

// DefaultTolerance is the comparison tolerance for continuous values
// (brightness, position, setpoints) when none is configured.
const DefaultTolerance = 1.0

// Evaluate derives the scene state by comparing live values against the
// snapshot. Pure and side-effect free so it can run on every poll tick.
//
// Returns StateOn only if every snapshot entry has a live value matching
// within tolerance. Any missing live value (unreachable entity) yields
// StateOff. An empty or nil snapshot yields StateUnknown.
func Evaluate(snapshot Snapshot, live map[string]device.Value, tolerance float64) State {
	if len(snapshot) == 0 {
		return StateUnknown
	}

	for id, expected := range snapshot {
		current, ok := live[id]
		if !ok {
			return StateOff
		}
		if !expected.Equal(current, tolerance) {
			return StateOff
		}
	}

	return StateOn
}
