package logic

import "time"

// observed is what the monitor compares between cycles.
type observed struct {
	Armed  bool
	Firing bool
	Mode   Mode
}

// Monitor detects transitions in what was actually written to the outputs.
// It is fed after the outputs are asserted and never influences them.
type Monitor struct {
	pol           Polarities
	last          observed
	baselined     bool
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// NewMonitor creates a Monitor. The startTime is used for heartbeat uptime.
func NewMonitor(pol Polarities, startTime time.Time) *Monitor {
	return &Monitor{
		pol:           pol,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process records one cycle and returns the transitions since the previous
// cycle. The first call establishes the baseline and returns no events.
func (m *Monitor) Process(st State, a Assertion, now time.Time) []Event {
	cur := observed{
		Armed:  a.Armed(m.pol),
		Firing: a.Firing(m.pol),
		Mode:   ModeOf(st.Manual),
	}

	if !m.baselined {
		m.last = cur
		m.baselined = true
		return nil
	}

	prev := m.last
	m.last = cur

	var types []EventType
	// Order: mode first, then arm, then fire
	if cur.Mode != prev.Mode {
		if cur.Mode == ModeManual {
			types = append(types, EventModeManual)
		} else {
			types = append(types, EventModeExternal)
		}
	}
	if cur.Armed != prev.Armed {
		if cur.Armed {
			types = append(types, EventArmed)
		} else {
			types = append(types, EventDisarmed)
		}
	}
	if cur.Firing != prev.Firing {
		if cur.Firing {
			types = append(types, EventFireOn)
		} else {
			types = append(types, EventFireOff)
		}
	}

	var events []Event
	for _, t := range types {
		m.count(t)
		events = append(events, Event{
			Timestamp: now,
			Type:      t,
			Armed:     cur.Armed,
			Firing:    cur.Firing,
			Mode:      cur.Mode,
			Failing:   st.Failing,
		})
	}
	return events
}

func (m *Monitor) count(t EventType) {
	switch t {
	case EventArmed:
		m.eventCounts.Armed++
	case EventDisarmed:
		m.eventCounts.Disarmed++
	case EventFireOn:
		m.eventCounts.FireOn++
	case EventFireOff:
		m.eventCounts.FireOff++
	case EventModeManual:
		m.eventCounts.ModeManual++
	case EventModeExternal:
		m.eventCounts.ModeExternal++
	}
}

// IsBaselined returns whether the first cycle has been observed.
func (m *Monitor) IsBaselined() bool {
	return m.baselined
}

// Counts returns a copy of the event counts.
func (m *Monitor) Counts() EventCounts {
	return m.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !m.baselined {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.eventCounts,
	}
}
