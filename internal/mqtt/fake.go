package mqtt

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// StateEvents contains all state transitions that were published.
	StateEvents []StateEvent

	// AlertEvents contains all mirrored notifications.
	AlertEvents []AlertEvent

	// SystemEvents contains all system events.
	SystemEvents []SystemEvent

	// Payloads contains the JSON payloads, in publish order.
	Payloads [][]byte

	// PublishError, if set, will be returned by all publish methods.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishState records the state transition.
func (f *FakePublisher) PublishState(event StateEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.StateEvents = append(f.StateEvents, event)

	payload, err := FormatStatePayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishAlert records the mirrored notification.
func (f *FakePublisher) PublishAlert(event AlertEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.AlertEvents = append(f.AlertEvents, event)

	payload, err := FormatAlertPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.StateEvents = nil
	f.AlertEvents = nil
	f.SystemEvents = nil
	f.Payloads = nil
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
