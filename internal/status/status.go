// Package status provides a thread-safe status tracker for the interlock daemon.
// It is written by the control loop and read by HTTP handlers and telemetry.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/laser-interlock/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PeriodMs    int64
	DebounceMs  int64
	ArmLeadMs   int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Pins        map[string]int
	Polarity    map[string]string
	Interlocks  []string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Running       bool // true once the first cycle has completed
	Ready         bool
	Manual        bool
	Armed         bool
	Firing        bool
	Failing       []string
	Cycles        uint64
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Mode returns the selected fire source.
func (s Snapshot) Mode() logic.Mode {
	return logic.ModeOf(s.Manual)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the outcome of one control cycle.
// Called from runLoop on every tick.
func (t *Tracker) Update(st logic.State, armed, firing bool, counts logic.EventCounts) {
	var failing []string
	if len(st.Failing) > 0 {
		failing = append([]string(nil), st.Failing...)
	}
	t.mu.Lock()
	t.snap.Running = true
	t.snap.Ready = st.Ready
	t.snap.Manual = st.Manual
	t.snap.Armed = armed
	t.snap.Firing = firing
	t.snap.Failing = failing
	t.snap.Counts = counts
	t.snap.Cycles++
	t.mu.Unlock()
}

// SetSafe records that the outputs were forced to their safe levels.
func (t *Tracker) SetSafe() {
	t.mu.Lock()
	t.snap.Armed = false
	t.snap.Firing = false
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
