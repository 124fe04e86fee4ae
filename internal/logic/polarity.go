package logic

import (
	"fmt"
	"strings"
)

// Polarity is the convention by which a line represents its asserted state.
type Polarity int

const (
	ActiveLow Polarity = iota
	ActiveHigh
)

// activeLevel is the only place raw levels are tied to meaning.
var activeLevel = map[Polarity]Level{
	ActiveLow:  Low,
	ActiveHigh: High,
}

// Active returns the raw level that asserts a line of this polarity.
func (p Polarity) Active() Level {
	return activeLevel[p]
}

// Inactive returns the raw level that de-asserts a line of this polarity.
func (p Polarity) Inactive() Level {
	return High - activeLevel[p]
}

// IsActive reports whether a raw level asserts a line of this polarity.
func (p Polarity) IsActive(l Level) bool {
	return l == p.Active()
}

// Level returns the raw level for a logical state.
func (p Polarity) Level(active bool) Level {
	if active {
		return p.Active()
	}
	return p.Inactive()
}

func (p Polarity) String() string {
	switch p {
	case ActiveLow:
		return "active-low"
	case ActiveHigh:
		return "active-high"
	}
	return fmt.Sprintf("Polarity(%d)", int(p))
}

// Translate maps a raw level on a line with polarity from onto the raw level
// carrying the same meaning on a line with polarity to.
func Translate(l Level, from, to Polarity) Level {
	return to.Level(from.IsActive(l))
}

// ParsePolarity accepts "active-low"/"low" and "active-high"/"high".
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active-low", "low":
		return ActiveLow, nil
	case "active-high", "high":
		return ActiveHigh, nil
	}
	return 0, fmt.Errorf("unknown polarity %q (want active-low or active-high)", s)
}

// Polarities is the per-line polarity table.
type Polarities struct {
	ManualFire   Polarity
	ExternalFire Polarity
	ModeSwitch   Polarity // level that selects manual mode
	FireOut      Polarity
	ArmOut       Polarity
}

// DefaultPolarities is the stock wiring: every line is active-low.
func DefaultPolarities() Polarities {
	return Polarities{
		ManualFire:   ActiveLow,
		ExternalFire: ActiveLow,
		ModeSwitch:   ActiveLow,
		FireOut:      ActiveLow,
		ArmOut:       ActiveLow,
	}
}

// IdleSnapshot is what the inputs read when nothing drives them: each pull
// resistor holds its line at the inactive level.
func (p Polarities) IdleSnapshot() Snapshot {
	return Snapshot{
		ManualFire:   p.ManualFire.Inactive(),
		ExternalFire: p.ExternalFire.Inactive(),
		ModeSwitch:   p.ModeSwitch.Inactive(),
	}
}
