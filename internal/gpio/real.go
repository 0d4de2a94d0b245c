//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const chipName = "gpiochip0"

// RealOutput drives a GPIO line on actual hardware.
type RealOutput struct {
	line *gpiocdev.Line
}

// NewRealOutput requests the pin as an output, initially low.
func NewRealOutput(pin int) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chipName, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	return &RealOutput{line: line}, nil
}

// Set drives the line.
func (o *RealOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set line: %w", err)
	}
	return nil
}

// Close drives the line low and releases it. Leaving the horn or LED
// energized across a restart is never acceptable.
func (o *RealOutput) Close() error {
	var errs []error
	if err := o.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("clear line: %w", err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealButton reads debounced edges from a pulled-up input pin. The pin
// reads low while the button is held.
type RealButton struct {
	line *gpiocdev.Line
	ch   chan ButtonEvent
}

// NewRealButton requests the pin with pull-up, both-edge detection, and
// kernel debouncing. Edges are delivered on a buffered channel; if the
// polling loop falls behind, the oldest unread edge wins and newer ones
// are dropped.
func NewRealButton(pin int) (*RealButton, error) {
	b := &RealButton{ch: make(chan ButtonEvent, 16)}

	line, err := gpiocdev.RequestLine(chipName, pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(buttonDebounce),
		gpiocdev.WithEventHandler(b.handleEdge))
	if err != nil {
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}
	b.line = line
	return b, nil
}

// handleEdge runs on gpiocdev's event goroutine. It only timestamps and
// forwards; all gesture interpretation happens in the polling loop.
func (b *RealButton) handleEdge(evt gpiocdev.LineEvent) {
	// Pull-up wiring: falling edge = press.
	ev := ButtonEvent{
		Pressed: evt.Type == gpiocdev.LineEventFallingEdge,
		Time:    time.Now(),
	}
	select {
	case b.ch <- ev:
	default:
	}
}

// Events returns the edge channel.
func (b *RealButton) Events() <-chan ButtonEvent {
	return b.ch
}

// Close releases the line.
func (b *RealButton) Close() error {
	if err := b.line.Close(); err != nil {
		return fmt.Errorf("close button line: %w", err)
	}
	return nil
}
