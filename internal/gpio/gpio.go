// Package gpio provides digital line access with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/laser-interlock/internal/logic"
)

// Lines owns the three input lines and the two output lines.
type Lines interface {
	// Read samples each input line exactly once and returns raw levels.
	Read() (logic.Snapshot, error)

	// Write drives both outputs. Both lines are written on every call.
	Write(a logic.Assertion) error

	// Err returns the first interlock line read error since the previous
	// call, then clears it. A non-nil error is fatal to the control loop.
	Err() error

	// Close drives both outputs inactive and releases the lines.
	Close() error
}

// Pins holds line offsets on the GPIO chip (BCM numbering on a Raspberry Pi).
type Pins struct {
	ManualFire   int
	ExternalFire int
	ModeSwitch   int
	FireOut      int
	ArmOut       int
}

// Default pin definitions (BCM numbering), matching the panel wiring.
const (
	DefaultPinManualFire   = 17
	DefaultPinExternalFire = 27
	DefaultPinFireOut      = 22
	DefaultPinModeSwitch   = 23
	DefaultPinArmOut       = 24
)

// DefaultChip is the GPIO character device used on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Consumer is the label the lines are requested under.
const Consumer = "laser-interlock"

// Config describes how the lines are wired.
type Config struct {
	Chip       string
	Pins       Pins
	Polarity   logic.Polarities
	Interlocks []InterlockPin
}

// DefaultPins returns the panel wiring.
func DefaultPins() Pins {
	return Pins{
		ManualFire:   DefaultPinManualFire,
		ExternalFire: DefaultPinExternalFire,
		ModeSwitch:   DefaultPinModeSwitch,
		FireOut:      DefaultPinFireOut,
		ArmOut:       DefaultPinArmOut,
	}
}

// InterlockPin is an input line backing one interlock. The interlock is safe
// only while the line reads active; an unconnected line is pulled inactive.
type InterlockPin struct {
	Name     string
	Offset   int
	Polarity logic.Polarity
}

// ParseInterlockPin parses "name:offset" or "name:offset:polarity".
// Polarity defaults to active-low.
func ParseInterlockPin(s string) (InterlockPin, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return InterlockPin{}, fmt.Errorf("interlock %q: want name:offset[:polarity]", s)
	}
	offset, err := strconv.Atoi(parts[1])
	if err != nil || offset < 0 {
		return InterlockPin{}, fmt.Errorf("interlock %q: bad offset %q", s, parts[1])
	}
	pin := InterlockPin{Name: parts[0], Offset: offset, Polarity: logic.ActiveLow}
	if len(parts) == 3 {
		pol, err := logic.ParsePolarity(parts[2])
		if err != nil {
			return InterlockPin{}, fmt.Errorf("interlock %q: %w", s, err)
		}
		pin.Polarity = pol
	}
	return pin, nil
}

// Output identifies one of the two output lines.
type Output int

const (
	OutputArm Output = iota
	OutputFire
)

func (o Output) String() string {
	if o == OutputArm {
		return "arm"
	}
	return "fire"
}

// WriteOrder returns the order in which the outputs are written. Fire is only
// raised after arm and is always dropped before arm.
func WriteOrder(a logic.Assertion, pol logic.Polarities) [2]Output {
	if pol.FireOut.IsActive(a.Fire) {
		return [2]Output{OutputArm, OutputFire}
	}
	return [2]Output{OutputFire, OutputArm}
}
