package logic

import "time"

// ButtonTracker classifies debounced press/release edges into the two
// button gestures: a short press (released before the silence hold
// threshold) is a config request, a long hold fires exactly one silence
// toggle per physical hold, re-armed only on release. The duration check
// runs from the polling loop, not the edge source, so the only state
// shared with the edge source is the event stream itself.
type ButtonTracker struct {
	holdThreshold time.Duration

	pressed     bool
	pressedAt   time.Time
	toggleFired bool
}

// NewButtonTracker creates a tracker with the given long-hold threshold.
func NewButtonTracker(holdThreshold time.Duration) *ButtonTracker {
	return &ButtonTracker{holdThreshold: holdThreshold}
}

// Press records a press edge. A press while already pressed is ignored
// (the edge source debounces, but replays are harmless).
func (b *ButtonTracker) Press(t time.Time) {
	if b.pressed {
		return
	}
	b.pressed = true
	b.pressedAt = t
	b.toggleFired = false
}

// Release records a release edge and reports whether the completed press
// was a config request (held shorter than the silence threshold). Holds
// that already fired the silence toggle never count as config requests.
func (b *ButtonTracker) Release(t time.Time) bool {
	if !b.pressed {
		return false
	}
	b.pressed = false
	fired := b.toggleFired
	b.toggleFired = false
	return !fired && t.Sub(b.pressedAt) < b.holdThreshold
}

// SilenceDue reports, at most once per physical hold, that the button
// has been held past the silence threshold. Called every poll tick.
func (b *ButtonTracker) SilenceDue(now time.Time) bool {
	if !b.pressed || b.toggleFired {
		return false
	}
	if now.Sub(b.pressedAt) < b.holdThreshold {
		return false
	}
	b.toggleFired = true
	return true
}

// Held reports whether the button is currently held down.
func (b *ButtonTracker) Held() bool { return b.pressed }
