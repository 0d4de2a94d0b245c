// Package mqtt publishes bilge monitor events with abstraction for
// testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/bilge-monitor/internal/logic"
)

// TopicEvents is the MQTT topic for state and alert events.
const TopicEvents = "marine/bilge/monitor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "marine/bilge/monitor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishState sends a state transition to the broker.
	// Returns error if publishing fails (must not crash the process).
	PublishState(event StateEvent) error

	// PublishAlert mirrors an outbound notification to the broker.
	PublishAlert(event AlertEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// StateEvent represents one device state transition.
type StateEvent struct {
	Timestamp time.Time
	From      logic.State
	To        logic.State
	LevelCm   float64
}

// AlertEvent mirrors a notification that went out over SMS/Discord.
type AlertEvent struct {
	Timestamp time.Time
	Kind      logic.NotificationKind
	Text      string
}

// SystemEvent represents a system lifecycle event (startup, shutdown,
// heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // whether the broker should retain the message
}

// Payload is the envelope for events on TopicEvents.
type Payload struct {
	Bilge BilgePayload `json:"bilge"`
}

// BilgePayload contains the event details.
type BilgePayload struct {
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	From      string  `json:"from,omitempty"`
	To        string  `json:"to,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	Message   string  `json:"message,omitempty"`
	LevelCm   float64 `json:"level_cm,omitempty"`
}

// FormatStatePayload creates the JSON payload for a state transition.
func FormatStatePayload(event StateEvent) ([]byte, error) {
	payload := Payload{
		Bilge: BilgePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     "STATE_CHANGE",
			From:      string(event.From),
			To:        string(event.To),
			LevelCm:   event.LevelCm,
		},
	}
	return json.Marshal(payload)
}

// FormatAlertPayload creates the JSON payload for a mirrored alert.
func FormatAlertPayload(event AlertEvent) ([]byte, error) {
	payload := Payload{
		Bilge: BilgePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     "NOTIFICATION",
			Kind:      string(event.Kind),
			Message:   event.Text,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the envelope for events on TopicSystem.
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
// If event.RawPayload is set, it is returned directly (used for full
// status snapshots).
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
