package status

import (
	"encoding/json"
	"time"
)

type statusJSON struct {
	Status innerJSON `json:"status"`
}

type innerJSON struct {
	Timestamp     string     `json:"timestamp"`
	State         string     `json:"state"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	LevelCm       float64    `json:"level_cm"`
	SensorValid   bool       `json:"sensor_valid"`
	Tier1Active   bool       `json:"tier1_active"`
	Tier2Active   bool       `json:"tier2_active"`
	HornOn        bool       `json:"horn_on"`
	Silenced      bool       `json:"silenced"`
	MQTTConnected bool       `json:"mqtt_connected"`
	Counts        countsJSON `json:"counts"`
	Config        configJSON `json:"config"`
}

type countsJSON struct {
	Emergencies    int `json:"emergencies"`
	Alerts         int `json:"alerts"`
	SensorErrors   int `json:"sensor_errors"`
	SilenceToggles int `json:"silence_toggles"`
}

type configJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	ConfigPath  string `json:"config_path"`
}

type statusEventJSON struct {
	Timestamp string    `json:"timestamp"`
	Event     string    `json:"event"`
	Reason    string    `json:"reason,omitempty"`
	Status    innerJSON `json:"status"`
}

func buildInner(s Snapshot) innerJSON {
	return innerJSON{
		Timestamp:     s.Now.UTC().Format(time.RFC3339),
		State:         string(s.State),
		UptimeSeconds: int64(s.Uptime().Seconds()),
		LevelCm:       s.LevelCm,
		SensorValid:   s.SensorValid,
		Tier1Active:   s.Tier1Active,
		Tier2Active:   s.Tier2Active,
		HornOn:        s.HornOn,
		Silenced:      s.Silenced,
		MQTTConnected: s.MQTTConnected,
		Counts: countsJSON{
			Emergencies:    s.Counts.Emergencies,
			Alerts:         s.Counts.Alerts,
			SensorErrors:   s.Counts.SensorErrors,
			SilenceToggles: s.Counts.SilenceToggles,
		},
		Config: configJSON{
			PollMs:      s.Config.PollMs,
			HeartbeatMs: s.Config.HeartbeatMs,
			Broker:      s.Config.Broker,
			HTTPAddr:    s.Config.HTTPAddr,
			ConfigPath:  s.Config.ConfigPath,
		},
	}
}

// FormatJSON renders the snapshot as the web portal's status document.
func FormatJSON(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(statusJSON{Status: buildInner(s)}, "", "  ")
}

// FormatStatusEvent renders the snapshot as the payload of a system
// event (STARTUP, SHUTDOWN, HEARTBEAT), with the event name and an
// optional reason alongside the full status block.
func FormatStatusEvent(s Snapshot, event, reason string) ([]byte, error) {
	return json.Marshal(statusEventJSON{
		Timestamp: s.Now.UTC().Format(time.RFC3339),
		Event:     event,
		Reason:    reason,
		Status:    buildInner(s),
	})
}
