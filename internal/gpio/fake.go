package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/laser-interlock/internal/logic"
)

// FakeLines is a test double that returns scripted input levels and records
// every output write.
type FakeLines struct {
	// Samples contains scripted raw input snapshots.
	// Each call to Read() consumes the next sample.
	Samples []logic.Snapshot

	// index tracks current position in Samples
	index int

	// Polarity is used for write ordering and the safe level on Close.
	Polarity logic.Polarities

	// Writes records every assertion passed to Write, in order.
	Writes []logic.Assertion

	// Ops records "read", "write arm=..", "write fire=.." and "close" in call order.
	Ops []string

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	// WriteError, if set, will be returned by Write()
	WriteError error

	// InterlockError, if set, is returned once by Err()
	InterlockError error
}

// NewFakeLines creates FakeLines with the given samples.
func NewFakeLines(pol logic.Polarities, samples []logic.Snapshot) *FakeLines {
	return &FakeLines{Polarity: pol, Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeLines) Read() (logic.Snapshot, error) {
	f.Ops = append(f.Ops, "read")
	if f.ReadError != nil {
		return logic.Snapshot{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return logic.Snapshot{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Write records the assertion.
func (f *FakeLines) Write(a logic.Assertion) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	for _, o := range WriteOrder(a, f.Polarity) {
		level := a.Arm
		if o == OutputFire {
			level = a.Fire
		}
		f.Ops = append(f.Ops, fmt.Sprintf("write %s=%s", o, level))
	}
	f.Writes = append(f.Writes, a)
	return nil
}

// Err returns InterlockError and clears it.
func (f *FakeLines) Err() error {
	err := f.InterlockError
	f.InterlockError = nil
	return err
}

// Close writes the safe assertion and marks the lines as closed.
func (f *FakeLines) Close() error {
	f.Writes = append(f.Writes, logic.SafeAssertion(f.Polarity))
	f.Ops = append(f.Ops, "close")
	f.Closed = true
	return nil
}

// LastWrite returns the most recent assertion, or false if none was written.
func (f *FakeLines) LastWrite() (logic.Assertion, bool) {
	if len(f.Writes) == 0 {
		return logic.Assertion{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// Reset resets the lines to the beginning of samples and clears recordings.
func (f *FakeLines) Reset() {
	f.index = 0
	f.Closed = false
	f.Writes = nil
	f.Ops = nil
}
