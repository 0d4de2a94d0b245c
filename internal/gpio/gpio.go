// Package gpio provides the digital I/O lines with hardware abstraction.
// The real implementations use the Linux GPIO character device; the fakes
// allow testing without hardware.
package gpio

import "time"

// Output drives a single digital line (horn relay, status LED).
type Output interface {
	// Set drives the line high (true) or low (false).
	Set(on bool) error

	// Close releases the line, driving it low first.
	Close() error
}

// ButtonEvent is one debounced edge from the push button.
type ButtonEvent struct {
	// Pressed is true on a press edge, false on a release edge.
	Pressed bool
	Time    time.Time
}

// Button delivers debounced edges. Events are produced by the kernel
// edge handler and consumed by the polling loop; the channel is the only
// state shared between the two.
type Button interface {
	Events() <-chan ButtonEvent
	Close() error
}

// Pin defaults (BCM numbering), matching the deployed wiring.
const (
	DefaultPinButton = 23
	DefaultPinHorn   = 19
	DefaultPinLED    = 12
)

// buttonDebounce filters contact chatter at the kernel level.
const buttonDebounce = 50 * time.Millisecond
