// Package led renders the device state on the status LED as a blink
// pattern. The driver is non-blocking: Update is called once per poll
// tick with the current time and only touches the line when the level
// actually changes.
package led

import (
	"time"

	"github.com/sweeney/bilge-monitor/internal/gpio"
	"github.com/sweeney/bilge-monitor/internal/logic"
)

// Pattern is a blink cadence for the status LED.
type Pattern string

const (
	PatternOff       Pattern = "OFF"
	PatternSolid     Pattern = "SOLID"
	PatternSlowBlink Pattern = "SLOW_BLINK"
	PatternFastBlink Pattern = "FAST_BLINK"
)

const (
	slowBlinkInterval = 500 * time.Millisecond
	fastBlinkInterval = 100 * time.Millisecond
)

// PatternForState maps a device state to its display pattern.
func PatternForState(s logic.State) Pattern {
	switch s {
	case logic.StateConfig:
		return PatternSlowBlink
	case logic.StateError:
		return PatternFastBlink
	case logic.StateEmergency:
		return PatternSolid
	default:
		return PatternOff
	}
}

// Driver toggles an output line according to the active pattern.
type Driver struct {
	out        gpio.Output
	pattern    Pattern
	lit        bool
	lastToggle time.Time
}

// NewDriver creates a driver holding the line low.
func NewDriver(out gpio.Output) *Driver {
	return &Driver{out: out, pattern: PatternOff}
}

// SetPattern switches the pattern, restarting the blink phase from a
// dark LED.
func (d *Driver) SetPattern(p Pattern, now time.Time) error {
	d.pattern = p
	d.lastToggle = now
	return d.set(false)
}

// Update advances the pattern. Call once per poll tick.
func (d *Driver) Update(now time.Time) error {
	var interval time.Duration
	switch d.pattern {
	case PatternOff:
		return d.set(false)
	case PatternSolid:
		return d.set(true)
	case PatternSlowBlink:
		interval = slowBlinkInterval
	case PatternFastBlink:
		interval = fastBlinkInterval
	}

	if now.Sub(d.lastToggle) < interval {
		return nil
	}
	d.lastToggle = now
	return d.set(!d.lit)
}

// Pattern returns the active pattern.
func (d *Driver) Pattern() Pattern { return d.pattern }

func (d *Driver) set(lit bool) error {
	if lit == d.lit {
		return nil
	}
	d.lit = lit
	return d.out.Set(lit)
}
