package notify

// Fake records sent messages for test assertions.
type Fake struct {
	// Sent contains every message passed to Send.
	Sent []string

	// SendError, if set, will be returned by Send (after recording).
	SendError error

	// NameValue is returned by Name.
	NameValue string
}

// NewFake creates a Fake notifier.
func NewFake(name string) *Fake {
	return &Fake{NameValue: name}
}

// Send records the message.
func (f *Fake) Send(text string) error {
	f.Sent = append(f.Sent, text)
	return f.SendError
}

// Name identifies the fake in logs.
func (f *Fake) Name() string { return f.NameValue }

// Reset clears recorded messages.
func (f *Fake) Reset() {
	f.Sent = nil
	f.SendError = nil
}
