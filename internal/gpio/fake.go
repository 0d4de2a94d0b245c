package gpio

import "time"

// FakeOutput records every level written to it.
type FakeOutput struct {
	// Levels contains each value passed to Set, in order.
	Levels []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutput creates a FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the level.
func (f *FakeOutput) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Levels = append(f.Levels, on)
	return nil
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recent level, or false if none was written.
func (f *FakeOutput) Last() bool {
	if len(f.Levels) == 0 {
		return false
	}
	return f.Levels[len(f.Levels)-1]
}

// Reset clears recorded levels.
func (f *FakeOutput) Reset() {
	f.Levels = nil
	f.Closed = false
	f.SetError = nil
}

// FakeButton is a channel-backed button for tests.
type FakeButton struct {
	ch     chan ButtonEvent
	Closed bool
}

// NewFakeButton creates a FakeButton with room for a few queued edges.
func NewFakeButton() *FakeButton {
	return &FakeButton{ch: make(chan ButtonEvent, 16)}
}

// Press queues a press edge.
func (f *FakeButton) Press(t time.Time) {
	f.ch <- ButtonEvent{Pressed: true, Time: t}
}

// Release queues a release edge.
func (f *FakeButton) Release(t time.Time) {
	f.ch <- ButtonEvent{Pressed: false, Time: t}
}

// Events returns the edge channel.
func (f *FakeButton) Events() <-chan ButtonEvent {
	return f.ch
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}
