package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/bilge-monitor/internal/config"
	"github.com/sweeney/bilge-monitor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s string) string {
		switch s {
		case "NORMAL":
			return "normal"
		case "EMERGENCY":
			return "emergency"
		case "ERROR":
			return "error"
		case "CONFIG":
			return "config"
		}
		return "unknown"
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"yesNo": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Bilge Monitor</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.normal { color: green; font-weight: bold; }
.emergency { color: red; font-weight: bold; }
.error { color: orange; font-weight: bold; }
.config { color: blue; font-weight: bold; }
.unknown { color: #888; }
.on { color: red; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
form { margin: 0.5em 0; }
input[type=text], input[type=number] { font-family: monospace; width: 10em; }
</style>
</head>
<body>
<h1>Bilge Monitor</h1>

<h2>State</h2>
<table>
<tr><th>Monitor</th><td class="{{stateClass (printf "%s" .State)}}">{{.State}}</td></tr>
<tr><th>Water level</th><td>{{printf "%.2f" .LevelCm}} cm</td></tr>
<tr><th>Sensor</th><td>{{if .SensorValid}}ok{{else}}invalid{{end}}</td></tr>
<tr><th>Tier 1 exceeded</th><td>{{yesNo .Tier1Active}}</td></tr>
<tr><th>Tier 2 exceeded</th><td>{{yesNo .Tier2Active}}</td></tr>
<tr><th>Horn</th><td class="{{if .HornOn}}on{{else}}off{{end}}">{{onOff .HornOn}}</td></tr>
<tr><th>Silenced</th><td>{{yesNo .Silenced}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Emergencies</th><td>{{.Counts.Emergencies}}</td></tr>
<tr><th>Alerts sent</th><td>{{.Counts.Alerts}}</td></tr>
<tr><th>Sensor errors</th><td>{{.Counts.SensorErrors}}</td></tr>
<tr><th>Silence toggles</th><td>{{.Counts.SilenceToggles}}</td></tr>
</table>

<h2>Settings</h2>
<table>
<tr><th>Tier 1 level</th><td>{{printf "%.1f" .Settings.Tier1LevelCm}} cm</td></tr>
<tr><th>Tier 2 level</th><td>{{printf "%.1f" .Settings.Tier2LevelCm}} cm</td></tr>
<tr><th>Alert interval</th><td>{{.Settings.NotifyIntervalMs}}ms</td></tr>
<tr><th>Horn duty</th><td>{{.Settings.HornOnMs}}ms on / {{.Settings.HornOffMs}}ms off</td></tr>
<tr><th>SMS number</th><td>{{if .Settings.PhoneNumber}}{{.Settings.PhoneNumber}}{{else}}not set{{end}}</td></tr>
<tr><th>Discord webhook</th><td>{{if .Settings.DiscordWebhookURL}}set{{else}}not set{{end}}</td></tr>
<tr><th>Calibration</th><td>zero {{.Settings.Calibration.ZeroMv}}mV{{if .Settings.Calibration.TwoPoint}}, span {{.Settings.Calibration.SpanMv}}mV @ {{printf "%.1f" .Settings.Calibration.SpanLevelCm}}cm{{else}} (single point){{end}}</td></tr>
</table>

{{if .SessionActive}}
<h2>Configure</h2>
<form method="post" action="/config">
<table>
<tr><th>Tier 1 level (cm)</th><td><input type="number" step="0.1" name="tier1_level_cm" value="{{printf "%.1f" .Settings.Tier1LevelCm}}"></td></tr>
<tr><th>Tier 2 level (cm)</th><td><input type="number" step="0.1" name="tier2_level_cm" value="{{printf "%.1f" .Settings.Tier2LevelCm}}"></td></tr>
<tr><th>Alert interval (ms)</th><td><input type="number" name="notify_interval_ms" value="{{.Settings.NotifyIntervalMs}}"></td></tr>
<tr><th>Horn on (ms)</th><td><input type="number" name="horn_on_ms" value="{{.Settings.HornOnMs}}"></td></tr>
<tr><th>Horn off (ms)</th><td><input type="number" name="horn_off_ms" value="{{.Settings.HornOffMs}}"></td></tr>
<tr><th></th><td><button type="submit">Save thresholds</button></td></tr>
</table>
</form>

<form method="post" action="/notify/phone">
SMS number <input type="text" name="phone_number" value="{{.Settings.PhoneNumber}}">
<button type="submit">Save</button>
</form>

<form method="post" action="/notify/webhook">
Discord webhook <input type="text" name="webhook_url" value="{{.Settings.DiscordWebhookURL}}">
<button type="submit">Save</button>
</form>

<form method="post" action="/calibrate/zero">
<button type="submit">Set zero point (sensor dry)</button>
</form>

<form method="post" action="/calibrate/span">
Known level (cm) <input type="number" step="0.1" name="level_cm">
<button type="submit">Set span point</button>
</form>

<form method="post" action="/test/sms"><button type="submit">Send test SMS</button></form>
<form method="post" action="/test/discord"><button type="submit">Send test Discord message</button></form>

<form method="post" action="/session/stop"><button type="submit">Exit configuration</button></form>
{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>Config file</th><td>{{.Config.ConfigPath}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, set config.Settings, sessionActive bool) {
	data := struct {
		status.Snapshot
		Uptime        time.Duration
		Settings      config.Settings
		SessionActive bool
	}{
		Snapshot:      snap,
		Uptime:        snap.Uptime(),
		Settings:      set,
		SessionActive: sessionActive,
	}
	indexTmpl.Execute(w, data)
}
