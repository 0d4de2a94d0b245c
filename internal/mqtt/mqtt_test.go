package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/bilge-monitor/internal/logic"
)

var testTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestFormatStatePayload(t *testing.T) {
	payload, err := FormatStatePayload(StateEvent{
		Timestamp: testTime,
		From:      logic.StateNormal,
		To:        logic.StateEmergency,
		LevelCm:   35.5,
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var got Payload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Bilge.Event != "STATE_CHANGE" {
		t.Errorf("unexpected event %q", got.Bilge.Event)
	}
	if got.Bilge.From != "NORMAL" || got.Bilge.To != "EMERGENCY" {
		t.Errorf("unexpected transition %s -> %s", got.Bilge.From, got.Bilge.To)
	}
	if got.Bilge.LevelCm != 35.5 {
		t.Errorf("unexpected level %v", got.Bilge.LevelCm)
	}
	if got.Bilge.Timestamp != "2026-01-01T12:00:00Z" {
		t.Errorf("unexpected timestamp %q", got.Bilge.Timestamp)
	}
}

func TestFormatAlertPayload(t *testing.T) {
	payload, err := FormatAlertPayload(AlertEvent{
		Timestamp: testTime,
		Kind:      logic.NotifyAlert,
		Text:      "Boat Monitor Alert: Emergency Level 35.00 cm",
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var got Payload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Bilge.Event != "NOTIFICATION" || got.Bilge.Kind != "ALERT" {
		t.Errorf("unexpected event/kind: %s/%s", got.Bilge.Event, got.Bilge.Kind)
	}
	if got.Bilge.Message == "" {
		t.Error("missing message")
	}
}

func TestFormatSystemPayload(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: testTime,
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var got SystemPayload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.System.Event != "SHUTDOWN" || got.System.Reason != "SIGTERM" {
		t.Errorf("unexpected system payload: %+v", got.System)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"system":{"event":"STARTUP","custom":true}}`)
	payload, err := FormatSystemPayload(SystemEvent{RawPayload: raw})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	f.PublishState(StateEvent{Timestamp: testTime, From: logic.StateNormal, To: logic.StateError})
	f.PublishAlert(AlertEvent{Timestamp: testTime, Kind: logic.NotifySilenceConfirm, Text: "x"})
	f.PublishSystem(SystemEvent{Timestamp: testTime, Event: "HEARTBEAT"})

	if len(f.StateEvents) != 1 || len(f.AlertEvents) != 1 || len(f.SystemEvents) != 1 {
		t.Fatalf("unexpected recorded counts: %d/%d/%d",
			len(f.StateEvents), len(f.AlertEvents), len(f.SystemEvents))
	}
	if len(f.Payloads) != 3 {
		t.Errorf("expected 3 payloads, got %d", len(f.Payloads))
	}
}
