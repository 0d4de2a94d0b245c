// Package notify delivers alert messages over SMS (Twilio) and Discord
// webhooks. Delivery is fire-and-forget from the control loop's point of
// view: failures are reported to the caller for logging and nothing else.
package notify

import "errors"

// Notifier sends one message to one destination.
type Notifier interface {
	// Send delivers the message. Blocking, bounded by the transport's
	// HTTP timeout; never called from the core.
	Send(text string) error

	// Name identifies the transport in logs.
	Name() string
}

// Multi fans a message out to every transport, attempting all of them
// even when some fail.
type Multi []Notifier

// Send delivers to every transport and joins the failures.
func (m Multi) Send(text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Name identifies the fan-out in logs.
func (m Multi) Name() string { return "all" }
