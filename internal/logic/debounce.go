package logic

import "time"

// lineFilter tracks debounce state for a single input line.
type lineFilter struct {
	// Current stable (debounced) level
	Stable Level
	// Candidate level awaiting confirmation
	Candidate Level
	// Time when the candidate was first observed
	CandidateSince time.Time
	// Whether a candidate is pending
	Pending bool
}

// Debouncer filters raw snapshots so that a level change only passes once it
// has been observed continuously for the debounce duration. Every line starts
// stable at its inactive level, so nothing is asserted before it has been
// held long enough.
type Debouncer struct {
	duration time.Duration
	manual   lineFilter
	external lineFilter
	mode     lineFilter
}

// NewDebouncer creates a Debouncer. A duration <= 0 passes samples through.
func NewDebouncer(duration time.Duration, pol Polarities) *Debouncer {
	idle := pol.IdleSnapshot()
	return &Debouncer{
		duration: duration,
		manual:   lineFilter{Stable: idle.ManualFire},
		external: lineFilter{Stable: idle.ExternalFire},
		mode:     lineFilter{Stable: idle.ModeSwitch},
	}
}

// Process takes a raw sample and returns the debounced snapshot.
func (d *Debouncer) Process(raw Snapshot, now time.Time) Snapshot {
	if d.duration <= 0 {
		return raw
	}
	return Snapshot{
		ManualFire:   d.filter(&d.manual, raw.ManualFire, now),
		ExternalFire: d.filter(&d.external, raw.ExternalFire, now),
		ModeSwitch:   d.filter(&d.mode, raw.ModeSwitch, now),
	}
}

// Stable returns the current debounced snapshot without consuming a sample.
func (d *Debouncer) Stable() Snapshot {
	return Snapshot{
		ManualFire:   d.manual.Stable,
		ExternalFire: d.external.Stable,
		ModeSwitch:   d.mode.Stable,
	}
}

func (d *Debouncer) filter(f *lineFilter, level Level, now time.Time) Level {
	if level == f.Stable {
		// Back at the stable level, drop any candidate
		f.Pending = false
		return f.Stable
	}

	if !f.Pending || f.Candidate != level {
		f.Candidate = level
		f.CandidateSince = now
		f.Pending = true
	}

	if now.Sub(f.CandidateSince) >= d.duration {
		f.Stable = level
		f.Pending = false
	}
	return f.Stable
}
