//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/laser-interlock/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// inactiveBias pulls each input toward its inactive level so an unconnected
// line reads as safe.
var inactiveBias = map[logic.Polarity]gpiocdev.LineBias{
	logic.ActiveLow:  gpiocdev.WithPullUp,
	logic.ActiveHigh: gpiocdev.WithPullDown,
}

// RealLines drives the interlock lines on actual hardware using the Linux
// GPIO character device.
type RealLines struct {
	pol       logic.Polarities
	chip      *gpiocdev.Chip
	manual    *gpiocdev.Line
	external  *gpiocdev.Line
	mode      *gpiocdev.Line
	fire      *gpiocdev.Line
	arm       *gpiocdev.Line
	interlock []*lineInterlock

	// first interlock read error not yet reported by Err
	interlockErr error
}

// NewRealLines requests every line. Outputs are requested first with their
// inactive level as the initial value, so they are never driven active before
// the first cycle. On any failure the lines already requested are released
// and their levels are left to the external pull resistors.
func NewRealLines(cfg Config) (*RealLines, error) {
	name := cfg.Chip
	if name == "" {
		name = DefaultChip
	}
	chip, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}

	r := &RealLines{pol: cfg.Polarity, chip: chip}
	if err := r.request(cfg); err != nil {
		r.release()
		return nil, err
	}
	return r, nil
}

func (r *RealLines) request(cfg Config) error {
	var err error
	pol := cfg.Polarity

	r.fire, err = r.chip.RequestLine(cfg.Pins.FireOut, gpiocdev.AsOutput(int(pol.FireOut.Inactive())))
	if err != nil {
		return fmt.Errorf("request fire out pin %d: %w", cfg.Pins.FireOut, err)
	}
	r.arm, err = r.chip.RequestLine(cfg.Pins.ArmOut, gpiocdev.AsOutput(int(pol.ArmOut.Inactive())))
	if err != nil {
		return fmt.Errorf("request arm out pin %d: %w", cfg.Pins.ArmOut, err)
	}

	r.manual, err = requestInput(r.chip, cfg.Pins.ManualFire, pol.ManualFire)
	if err != nil {
		return fmt.Errorf("request manual fire pin %d: %w", cfg.Pins.ManualFire, err)
	}
	r.external, err = requestInput(r.chip, cfg.Pins.ExternalFire, pol.ExternalFire)
	if err != nil {
		return fmt.Errorf("request external fire pin %d: %w", cfg.Pins.ExternalFire, err)
	}
	// Mode switch pulls to external/auto, the safer mode
	r.mode, err = requestInput(r.chip, cfg.Pins.ModeSwitch, pol.ModeSwitch)
	if err != nil {
		return fmt.Errorf("request mode switch pin %d: %w", cfg.Pins.ModeSwitch, err)
	}

	for _, p := range cfg.Interlocks {
		line, err := requestInput(r.chip, p.Offset, p.Polarity)
		if err != nil {
			return fmt.Errorf("request interlock %s pin %d: %w", p.Name, p.Offset, err)
		}
		r.interlock = append(r.interlock, &lineInterlock{name: p.Name, pol: p.Polarity, line: line, fault: &r.interlockErr})
	}
	return nil
}

func requestInput(chip *gpiocdev.Chip, offset int, pol logic.Polarity) (*gpiocdev.Line, error) {
	return chip.RequestLine(offset, gpiocdev.AsInput, inactiveBias[pol])
}

// Read samples each input line once.
func (r *RealLines) Read() (logic.Snapshot, error) {
	manual, err := r.manual.Value()
	if err != nil {
		return logic.Snapshot{}, fmt.Errorf("read manual fire pin: %w", err)
	}
	external, err := r.external.Value()
	if err != nil {
		return logic.Snapshot{}, fmt.Errorf("read external fire pin: %w", err)
	}
	mode, err := r.mode.Value()
	if err != nil {
		return logic.Snapshot{}, fmt.Errorf("read mode switch pin: %w", err)
	}
	return logic.Snapshot{
		ManualFire:   logic.Level(manual),
		ExternalFire: logic.Level(external),
		ModeSwitch:   logic.Level(mode),
	}, nil
}

// Write drives both outputs in WriteOrder.
func (r *RealLines) Write(a logic.Assertion) error {
	for _, o := range WriteOrder(a, r.pol) {
		line, level := r.arm, a.Arm
		if o == OutputFire {
			line, level = r.fire, a.Fire
		}
		if err := line.SetValue(int(level)); err != nil {
			return fmt.Errorf("write %s pin: %w", o, err)
		}
	}
	return nil
}

// Err returns the first interlock read error since the previous call and
// clears it. The failed interlock has already reported unsafe.
func (r *RealLines) Err() error {
	err := r.interlockErr
	r.interlockErr = nil
	return err
}

// Interlocks returns one interlock per configured interlock line.
func (r *RealLines) Interlocks() logic.Interlocks {
	out := make(logic.Interlocks, 0, len(r.interlock))
	for _, il := range r.interlock {
		out = append(out, il)
	}
	return out
}

// Close drives both outputs inactive, then reconfigures them as inputs biased
// toward their inactive level before releasing them. After release the
// external pull resistors hold the outputs inactive.
func (r *RealLines) Close() error {
	var errs []error
	if r.fire != nil && r.arm != nil {
		if err := r.Write(logic.SafeAssertion(r.pol)); err != nil {
			errs = append(errs, fmt.Errorf("assert safe: %w", err))
		}
	}
	for _, o := range []struct {
		name string
		line *gpiocdev.Line
		pol  logic.Polarity
	}{
		{"fire", r.fire, r.pol.FireOut},
		{"arm", r.arm, r.pol.ArmOut},
	} {
		if o.line == nil {
			continue
		}
		if err := o.line.Reconfigure(gpiocdev.AsInput, inactiveBias[o.pol]); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", o.name, err))
		}
	}
	if err := r.release(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

func (r *RealLines) release() error {
	var errs []error
	lines := []*gpiocdev.Line{r.fire, r.arm, r.manual, r.external, r.mode}
	for _, il := range r.interlock {
		lines = append(lines, il.line)
	}
	for _, l := range lines {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	r.fire, r.arm, r.manual, r.external, r.mode, r.interlock = nil, nil, nil, nil, nil, nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	return errors.Join(errs...)
}

// lineInterlock is safe while its line reads active. A read error is unsafe
// and is recorded in fault for the control loop to treat as fatal.
type lineInterlock struct {
	name  string
	pol   logic.Polarity
	line  *gpiocdev.Line
	fault *error
}

func (l *lineInterlock) Name() string { return l.name }

func (l *lineInterlock) Safe() bool {
	v, err := l.line.Value()
	if err != nil {
		if *l.fault == nil {
			*l.fault = fmt.Errorf("read interlock %s pin: %w", l.name, err)
		}
		return false
	}
	return l.pol.IsActive(logic.Level(v))
}
