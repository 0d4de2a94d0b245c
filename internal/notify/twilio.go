package notify

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// Twilio sends SMS through the Twilio Messages API.
type Twilio struct {
	accountSID string
	authToken  string
	from       string

	// to is read at send time so a number saved through the portal takes
	// effect without a restart.
	to func() string

	client  *http.Client
	baseURL string
}

// NewTwilio creates an SMS sender. The destination number is resolved on
// every send via the to func (typically config.Store.PhoneNumber).
func NewTwilio(accountSID, authToken, from string, to func() string) *Twilio {
	return &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
		client:     &http.Client{Timeout: 10 * time.Second},
		baseURL:    twilioAPIBase,
	}
}

// Configured reports whether credentials are present at all.
func (t *Twilio) Configured() bool {
	return t.accountSID != "" && t.authToken != "" && t.from != ""
}

// Send posts the message to the Twilio Messages endpoint.
func (t *Twilio) Send(text string) error {
	if !t.Configured() {
		return fmt.Errorf("twilio: credentials not configured")
	}
	to := t.to()
	if to == "" {
		return fmt.Errorf("twilio: no phone number configured")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.from)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: send: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("twilio: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Name identifies the transport in logs.
func (t *Twilio) Name() string { return "sms" }
