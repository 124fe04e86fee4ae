package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Running       bool         `json:"running"`
	Ready         bool         `json:"ready"`
	Mode          string       `json:"mode"`
	Armed         bool         `json:"armed"`
	Firing        bool         `json:"firing"`
	Failing       []string     `json:"failing_interlocks"`
	Cycles        uint64       `json:"cycles"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Armed        int `json:"armed"`
	Disarmed     int `json:"disarmed"`
	FireOn       int `json:"fire_on"`
	FireOff      int `json:"fire_off"`
	ModeManual   int `json:"mode_manual"`
	ModeExternal int `json:"mode_external"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PeriodMs    int64             `json:"period_ms"`
	DebounceMs  int64             `json:"debounce_ms"`
	ArmLeadMs   int64             `json:"arm_lead_ms"`
	HeartbeatMs int64             `json:"heartbeat_ms"`
	Broker      string            `json:"broker"`
	HTTPAddr    string            `json:"http_addr"`
	Pins        map[string]int    `json:"pins,omitempty"`
	Polarity    map[string]string `json:"polarity,omitempty"`
	Interlocks  []string          `json:"interlocks"`
}

func buildInner(snap Snapshot) StatusInner {
	failing := snap.Failing
	if failing == nil {
		failing = []string{}
	}
	interlocks := snap.Config.Interlocks
	if interlocks == nil {
		interlocks = []string{}
	}

	return StatusInner{
		Running:       snap.Running,
		Ready:         snap.Ready,
		Mode:          string(snap.Mode()),
		Armed:         snap.Armed,
		Firing:        snap.Firing,
		Failing:       failing,
		Cycles:        snap.Cycles,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Armed:        snap.Counts.Armed,
			Disarmed:     snap.Counts.Disarmed,
			FireOn:       snap.Counts.FireOn,
			FireOff:      snap.Counts.FireOff,
			ModeManual:   snap.Counts.ModeManual,
			ModeExternal: snap.Counts.ModeExternal,
		},
		Config: ConfigJSON{
			PeriodMs:    snap.Config.PeriodMs,
			DebounceMs:  snap.Config.DebounceMs,
			ArmLeadMs:   snap.Config.ArmLeadMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Pins:        snap.Config.Pins,
			Polarity:    snap.Config.Polarity,
			Interlocks:  interlocks,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
