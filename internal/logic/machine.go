package logic

import (
	"fmt"
	"time"
)

// Machine owns the device state and every timer that drives it. It is
// exclusively owned by the polling loop: one Update call per tick, no
// I/O, bounded time. Outputs are a function of the current state and
// elapsed time (Moore style), except that entering NORMAL always forces
// the horn off and clears the silence and config flags.
type Machine struct {
	state           State
	lastStateChange time.Time

	tier1TrueSince  time.Time
	tier1FalseSince time.Time
	lastNotify      time.Time
	lastHornToggle  time.Time

	tier1Active bool
	tier2Active bool
	hornOn      bool
	sensorError bool
	silenced    bool

	// One-shot command from a short button press, cleared on consumption.
	configRequested bool
}

// NewMachine creates a machine in the given initial state. The start time
// seeds the tier edge timestamps; the notification timer is left at zero
// so the first emergency tick alerts immediately.
func NewMachine(initial State, start time.Time) *Machine {
	return &Machine{
		state:           initial,
		lastStateChange: start,
		tier1TrueSince:  start,
		tier1FalseSince: start,
	}
}

// Update runs one tick: evaluates the emergency conditions, applies the
// transition table, and while in EMERGENCY runs the notification
// throttler and the horn pulse controller.
func (m *Machine) Update(reading Reading, now time.Time, cfg Thresholds, configSessionActive bool) Action {
	var act Action

	m.sensorError = !reading.Valid
	m.evaluateTiers(reading, now, cfg)

	next := m.nextState(now, configSessionActive)
	if next != m.state {
		if next == StateConfig {
			// Consumed exactly once per transition into CONFIG.
			m.configRequested = false
		}
		if next == StateNormal {
			m.silenced = false
			m.configRequested = false
		}
		m.state = next
		m.lastStateChange = now
		act.StateChanged = &next
	}

	if m.state == StateEmergency {
		m.throttleNotification(reading, now, cfg, &act)
		m.pulseHorn(now, cfg, &act)
	} else if m.hornOn {
		// The horn must never stay on outside EMERGENCY.
		m.hornOn = false
		act.HornCommand = boolPtr(false)
	}

	return act
}

// evaluateTiers derives the tier flags and records the tier-1 edge
// timestamps. Edges only, not every tick. Tier-2 has no debounce of its
// own; it rides on tier-1's EMERGENCY state.
func (m *Machine) evaluateTiers(reading Reading, now time.Time, cfg Thresholds) {
	wasActive := m.tier1Active
	m.tier1Active = reading.LevelCm >= cfg.Tier1LevelCm
	if m.tier1Active && !wasActive {
		m.tier1TrueSince = now
	} else if !m.tier1Active && wasActive {
		m.tier1FalseSince = now
	}

	m.tier2Active = reading.LevelCm >= cfg.Tier2LevelCm
}

// nextState applies the transition table in priority order; first match
// wins. A sensor error overrides everything: the owner must never be
// told "all clear" while the sensor is untrustworthy.
func (m *Machine) nextState(now time.Time, configSessionActive bool) State {
	switch m.state {
	case StateError:
		if !m.sensorError {
			return StateNormal
		}
		if m.configRequested {
			return StateConfig
		}
	case StateNormal:
		if m.sensorError {
			return StateError
		}
		if m.tier1Active && now.Sub(m.tier1TrueSince) >= EmergencyDebounce {
			return StateEmergency
		}
		if m.configRequested {
			return StateConfig
		}
	case StateConfig:
		// Exit is driven by the portal session alone. A config request
		// raised while already in CONFIG must not hold the machine
		// here; it is discarded by the cleanup on entering NORMAL.
		if !configSessionActive {
			return StateNormal
		}
	case StateEmergency:
		if !m.tier1Active && now.Sub(m.tier1FalseSince) >= EmergencyDebounce {
			return StateNormal
		}
	}
	return m.state
}

// throttleNotification advances the alert timer and emits an Alert when
// due. The timer advances even while silenced so that lifting silence
// never releases a burst of queued messages.
func (m *Machine) throttleNotification(reading Reading, now time.Time, cfg Thresholds, act *Action) {
	if now.Sub(m.lastNotify) < cfg.NotifyInterval {
		return
	}
	m.lastNotify = now
	if m.silenced {
		return
	}
	act.Notification = &Notification{Kind: NotifyAlert, Text: alertText(m.tier2Active, reading.LevelCm)}
}

// pulseHorn toggles the horn line on its on/off duty cycle while tier-2
// conditions hold unsilenced, and forces it off the moment they don't.
// The toggle timer deliberately freezes while silenced: on unsilence the
// horn resumes its duty cycle where it left off. (The notification timer
// above gets the opposite treatment.)
func (m *Machine) pulseHorn(now time.Time, cfg Thresholds, act *Action) {
	if m.tier2Active && !m.silenced {
		phase := cfg.HornOff
		if m.hornOn {
			phase = cfg.HornOn
		}
		if now.Sub(m.lastHornToggle) >= phase {
			m.hornOn = !m.hornOn
			m.lastHornToggle = now
			act.HornCommand = boolPtr(m.hornOn)
		}
		return
	}
	if m.hornOn {
		m.hornOn = false
		act.HornCommand = boolPtr(false)
	}
}

// RequestConfig records a short-press config command. It is a one-shot
// flag consumed by the next transition into CONFIG (or discarded when
// the machine next enters NORMAL).
func (m *Machine) RequestConfig() {
	m.configRequested = true
}

// ToggleSilence flips notification silencing. Outside EMERGENCY it is a
// no-op and returns an empty Action. Silencing forces the horn off and
// confirms over the transports; unsilencing only confirms, and the next
// throttler tick may immediately re-alert if the interval has elapsed.
func (m *Machine) ToggleSilence() Action {
	var act Action
	if m.state != StateEmergency {
		return act
	}

	m.silenced = !m.silenced
	if m.silenced {
		act.Notification = &Notification{Kind: NotifySilenceConfirm, Text: silenceText}
		if m.hornOn {
			m.hornOn = false
			act.HornCommand = boolPtr(false)
		}
	} else {
		act.Notification = &Notification{Kind: NotifyUnsilenceConfirm, Text: unsilenceText}
	}
	return act
}

// State returns the current device state.
func (m *Machine) State() State { return m.state }

// Silenced reports whether emergency notifications are silenced.
func (m *Machine) Silenced() bool { return m.silenced }

// HornOn reports the currently commanded horn level.
func (m *Machine) HornOn() bool { return m.hornOn }

// SensorError reports whether the last reading was invalid.
func (m *Machine) SensorError() bool { return m.sensorError }

// TierActive returns the tier-1 and tier-2 emergency flags.
func (m *Machine) TierActive() (tier1, tier2 bool) {
	return m.tier1Active, m.tier2Active
}

// LastStateChange returns when the current state was entered.
func (m *Machine) LastStateChange() time.Time { return m.lastStateChange }

const (
	silenceText   = "Boat Monitor: Emergency alerts have been temporarily silenced"
	unsilenceText = "Boat Monitor: Emergency alerts have been re-enabled"
)

func alertText(urgent bool, levelCm float64) string {
	if urgent {
		return fmt.Sprintf("Boat Monitor URGENT Alert: Critical Level %.2f cm - HORN ACTIVATED!", levelCm)
	}
	return fmt.Sprintf("Boat Monitor Alert: Emergency Level %.2f cm", levelCm)
}

func boolPtr(b bool) *bool { return &b }
