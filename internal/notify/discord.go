package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Discord sends messages to a Discord webhook.
type Discord struct {
	// url is read at send time so a webhook saved through the portal
	// takes effect without a restart.
	url func() string

	client *http.Client
}

// NewDiscord creates a webhook sender. The webhook URL is resolved on
// every send via the url func (typically config.Store.WebhookURL).
func NewDiscord(url func() string) *Discord {
	return &Discord{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message as webhook content.
func (d *Discord) Send(text string) error {
	url := d.url()
	if url == "" {
		return fmt.Errorf("discord: no webhook configured")
	}

	body, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	resp, err := d.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: send: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Name identifies the transport in logs.
func (d *Discord) Name() string { return "discord" }
