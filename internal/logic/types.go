// Package logic contains the pure decision core of the laser interlock.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Level is a raw physical line level.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Snapshot holds the raw input levels sampled in one cycle.
// It is created fresh every cycle and never compared across cycles by the core.
type Snapshot struct {
	ManualFire   Level
	ExternalFire Level
	ModeSwitch   Level
}

// State is derived per cycle from a Snapshot and the interlock list.
type State struct {
	Ready    bool
	Manual   bool
	Selected Level // raw fire request level of the selected source

	// Failing names the interlocks that reported unsafe this cycle.
	Failing []string
}

// Assertion is the pair of raw output levels written every cycle.
type Assertion struct {
	Arm  Level
	Fire Level
}

// Mode names the fire source selected by the mode switch.
type Mode string

const (
	ModeManual   Mode = "MANUAL"
	ModeExternal Mode = "EXTERNAL"
)

// ModeOf returns the Mode for a manual flag.
func ModeOf(manual bool) Mode {
	if manual {
		return ModeManual
	}
	return ModeExternal
}

// EventType represents an observable transition of the interlock.
type EventType string

const (
	EventArmed        EventType = "ARMED"
	EventDisarmed     EventType = "DISARMED"
	EventFireOn       EventType = "FIRE_ON"
	EventFireOff      EventType = "FIRE_OFF"
	EventModeManual   EventType = "MODE_MANUAL"
	EventModeExternal EventType = "MODE_EXTERNAL"
)

// Event represents a transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Armed     bool
	Firing    bool
	Mode      Mode
	Failing   []string
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Armed        int
	Disarmed     int
	FireOn       int
	FireOff      int
	ModeManual   int
	ModeExternal int
}
