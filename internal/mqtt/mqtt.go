// Package mqtt provides MQTT telemetry publishing with abstraction for testing.
// Nothing is subscribed to: the interlock cannot be controlled over MQTT.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/laser-interlock/internal/logic"
)

// Topic is the MQTT topic for interlock transition events.
const Topic = "laser/interlock/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "laser/interlock/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an interlock event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat, fault).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "FAULT"
	Reason     string // e.g., "SIGTERM", "SIGINT", error text for FAULT
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Interlock InterlockPayload `json:"interlock"`
}

// InterlockPayload contains the transition details.
type InterlockPayload struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Armed     bool     `json:"armed"`
	Firing    bool     `json:"firing"`
	Mode      string   `json:"mode"`
	Failing   []string `json:"failing,omitempty"`
}

// FormatPayload creates the JSON payload for an interlock event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Interlock: InterlockPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Type),
			Armed:     event.Armed,
			Firing:    event.Firing,
			Mode:      string(event.Mode),
			Failing:   event.Failing,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, FAULT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
