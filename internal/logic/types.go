// Package logic contains the pure control core for the bilge monitor.
// This package has NO external dependencies (no GPIO, I2C, HTTP, or
// time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the device condition.
type State string

const (
	StateError     State = "ERROR"
	StateNormal    State = "NORMAL"
	StateEmergency State = "EMERGENCY"
	StateConfig    State = "CONFIG"
)

// Reading is a single water-level sample as seen by the core.
// Valid=false means the sensor itself is untrustworthy; it does not
// suppress tier evaluation but forces the ERROR state.
type Reading struct {
	Valid   bool
	LevelCm float64
}

// Thresholds is the live tunable snapshot, re-read every tick.
// Tier2LevelCm > Tier1LevelCm is enforced by the configuration store.
type Thresholds struct {
	Tier1LevelCm   float64
	Tier2LevelCm   float64
	NotifyInterval time.Duration
	HornOn         time.Duration
	HornOff        time.Duration
}

// NotificationKind classifies an outbound message.
type NotificationKind string

const (
	NotifyAlert            NotificationKind = "ALERT"
	NotifySilenceConfirm   NotificationKind = "SILENCE_CONFIRM"
	NotifyUnsilenceConfirm NotificationKind = "UNSILENCE_CONFIRM"
)

// Notification is a message the caller should hand to the transports.
type Notification struct {
	Kind NotificationKind
	Text string
}

// Action is the output of a single update. Nil fields mean "no change".
// It is not persisted; the caller dispatches it and drops it.
type Action struct {
	StateChanged *State
	HornCommand  *bool
	Notification *Notification
}

// EmergencyDebounce is how long tier-1 conditions must hold, continuously,
// before the EMERGENCY state is entered or left. Applied symmetrically.
const EmergencyDebounce = 1000 * time.Millisecond

// SilenceHoldDuration is the minimum button hold that toggles silence
// while in EMERGENCY. Shorter holds are config requests.
const SilenceHoldDuration = 5000 * time.Millisecond
