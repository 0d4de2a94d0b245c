package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/bilge-monitor/internal/config"
	"github.com/sweeney/bilge-monitor/internal/logic"
	"github.com/sweeney/bilge-monitor/internal/notify"
	"github.com/sweeney/bilge-monitor/internal/sensor"
	"github.com/sweeney/bilge-monitor/internal/status"
)

type testHarness struct {
	ts      *httptest.Server
	srv     *Server
	tracker *status.Tracker
	store   *config.Store
	sms     *notify.Fake
	discord *notify.Fake
	reading sensor.Reading
}

func newTestServer(t *testing.T) *testHarness {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      100,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
		ConfigPath:  "/var/lib/bilge-monitor/config.json",
	}

	store, err := config.Open(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	h := &testHarness{
		tracker: status.NewTracker(start, cfg),
		store:   store,
		sms:     notify.NewFake("sms"),
		discord: notify.NewFake("discord"),
		reading: sensor.Reading{Valid: true, LevelCm: 12.5, Millivolts: 800, Time: start},
	}
	h.srv = New(":0", Deps{
		Tracker: h.tracker,
		Store:   store,
		Reading: func() sensor.Reading { return h.reading },
		SMS:     h.sms,
		Discord: h.discord,
		Log:     zap.NewNop().Sugar(),
	})
	h.ts = httptest.NewServer(h.srv.httpServer.Handler)
	t.Cleanup(h.ts.Close)
	return h
}

func postForm(t *testing.T, h *testHarness, path string, form url.Values) *http.Response {
	t.Helper()
	// Don't follow the 303 back to "/".
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.PostForm(h.ts.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestJSONEndpoint(t *testing.T) {
	h := newTestServer(t)
	h.tracker.Update(logic.StateEmergency, 55.5, true, true, true, true, false)
	h.tracker.SetMQTTConnected(true)

	resp, err := http.Get(h.ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var doc struct {
		Status struct {
			State         string  `json:"state"`
			LevelCm       float64 `json:"level_cm"`
			Tier2Active   bool    `json:"tier2_active"`
			HornOn        bool    `json:"horn_on"`
			MQTTConnected bool    `json:"mqtt_connected"`
			Config        struct {
				Broker string `json:"broker"`
			} `json:"config"`
		} `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if doc.Status.State != "EMERGENCY" {
		t.Errorf("state: got %q, want EMERGENCY", doc.Status.State)
	}
	if doc.Status.LevelCm != 55.5 {
		t.Errorf("level_cm: got %v, want 55.5", doc.Status.LevelCm)
	}
	if !doc.Status.Tier2Active || !doc.Status.HornOn {
		t.Errorf("flags wrong: %+v", doc.Status)
	}
	if !doc.Status.MQTTConnected {
		t.Error("expected mqtt_connected=true")
	}
	if doc.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("broker: got %q", doc.Status.Config.Broker)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	h := newTestServer(t)
	h.tracker.Update(logic.StateNormal, 5, true, false, false, false, false)

	resp, err := http.Get(h.ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	h := newTestServer(t)

	resp, err := http.Get(h.ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestReadingEndpoint(t *testing.T) {
	h := newTestServer(t)

	resp, err := http.Get(h.ts.URL + "/reading")
	if err != nil {
		t.Fatalf("GET /reading: %v", err)
	}
	defer resp.Body.Close()

	var doc struct {
		Valid      bool    `json:"valid"`
		LevelCm    float64 `json:"level_cm"`
		Millivolts float64 `json:"millivolts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !doc.Valid || doc.LevelCm != 12.5 || doc.Millivolts != 800 {
		t.Errorf("reading wrong: %+v", doc)
	}
}

func TestPortalRequiresSession(t *testing.T) {
	h := newTestServer(t)

	form := url.Values{
		"tier1_level_cm": {"25"}, "tier2_level_cm": {"45"},
		"notify_interval_ms": {"600000"}, "horn_on_ms": {"500"}, "horn_off_ms": {"500"},
	}
	resp := postForm(t, h, "/config", form)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("without session: got %d, want 403", resp.StatusCode)
	}

	h.srv.StartSession()
	resp = postForm(t, h, "/config", form)
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("with session: got %d, want 303", resp.StatusCode)
	}

	th := h.store.Thresholds()
	if th.Tier1LevelCm != 25 || th.Tier2LevelCm != 45 {
		t.Errorf("thresholds not persisted: %+v", th)
	}
	if th.NotifyInterval != 10*time.Minute {
		t.Errorf("notify interval: got %v, want 10m", th.NotifyInterval)
	}
}

func TestPortalRejectsGet(t *testing.T) {
	h := newTestServer(t)
	h.srv.StartSession()

	resp, err := http.Get(h.ts.URL + "/calibrate/zero")
	if err != nil {
		t.Fatalf("GET /calibrate/zero: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestConfigUpdateValidation(t *testing.T) {
	h := newTestServer(t)
	h.srv.StartSession()

	// tier2 below tier1 must be rejected and leave settings untouched.
	resp := postForm(t, h, "/config", url.Values{
		"tier1_level_cm": {"50"}, "tier2_level_cm": {"30"},
		"notify_interval_ms": {"600000"}, "horn_on_ms": {"500"}, "horn_off_ms": {"500"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
	if th := h.store.Thresholds(); th.Tier1LevelCm != 30 || th.Tier2LevelCm != 50 {
		t.Errorf("settings changed on invalid update: %+v", th)
	}
}

func TestConfigUpdateMalformedField(t *testing.T) {
	h := newTestServer(t)
	h.srv.StartSession()

	resp := postForm(t, h, "/config", url.Values{
		"tier1_level_cm": {"abc"}, "tier2_level_cm": {"45"},
		"notify_interval_ms": {"600000"}, "horn_on_ms": {"500"}, "horn_off_ms": {"500"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestCalibrationEndpoints(t *testing.T) {
	h := newTestServer(t)
	h.srv.StartSession()

	h.reading.Millivolts = 605
	postForm(t, h, "/calibrate/zero", nil)
	if cal := h.store.Calibration(); cal.ZeroMv != 605 || cal.TwoPoint {
		t.Errorf("zero calibration wrong: %+v", cal)
	}

	h.reading.Millivolts = 1800
	postForm(t, h, "/calibrate/span", url.Values{"level_cm": {"40"}})
	cal := h.store.Calibration()
	if !cal.TwoPoint || cal.SpanMv != 1800 || cal.SpanLevelCm != 40 {
		t.Errorf("span calibration wrong: %+v", cal)
	}
}

func TestNotifyTargets(t *testing.T) {
	h := newTestServer(t)
	h.srv.StartSession()

	postForm(t, h, "/notify/phone", url.Values{"phone_number": {"+15551234567"}})
	if got := h.store.PhoneNumber(); got != "+15551234567" {
		t.Errorf("phone: got %q", got)
	}

	postForm(t, h, "/notify/webhook", url.Values{"webhook_url": {"https://discord.example/hook"}})
	if got := h.store.WebhookURL(); got != "https://discord.example/hook" {
		t.Errorf("webhook: got %q", got)
	}
}

func TestTestMessageEndpoints(t *testing.T) {
	h := newTestServer(t)
	h.srv.StartSession()

	postForm(t, h, "/test/sms", nil)
	if len(h.sms.Sent) != 1 || !strings.Contains(h.sms.Sent[0], "test message") {
		t.Errorf("sms sent: %v", h.sms.Sent)
	}

	postForm(t, h, "/test/discord", nil)
	if len(h.discord.Sent) != 1 {
		t.Errorf("discord sent: %v", h.discord.Sent)
	}
}

func TestSessionStartRequiresConfigState(t *testing.T) {
	h := newTestServer(t)
	h.tracker.Update(logic.StateNormal, 5, true, false, false, false, false)

	resp := postForm(t, h, "/session/start", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("outside config mode: got %d, want 409", resp.StatusCode)
	}

	h.tracker.Update(logic.StateConfig, 5, true, false, false, false, false)
	resp = postForm(t, h, "/session/start", nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("in config mode: got %d, want 303", resp.StatusCode)
	}
	if !h.srv.SessionActive() {
		t.Error("expected session active after /session/start")
	}
}

func TestSessionStop(t *testing.T) {
	h := newTestServer(t)
	h.srv.StartSession()

	postForm(t, h, "/session/stop", nil)
	if h.srv.SessionActive() {
		t.Error("expected session inactive after /session/stop")
	}
}

func TestSessionIdleTimeout(t *testing.T) {
	s := newSession()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Start()
	if !s.Active() {
		t.Fatal("expected active after Start")
	}

	// Requests keep refreshing the deadline.
	now = now.Add(3 * time.Minute)
	s.Touch()
	now = now.Add(3 * time.Minute)
	if !s.Active() {
		t.Error("expected active 3m after touch")
	}

	// Silence past the deadline expires the session.
	now = now.Add(2 * time.Minute)
	if s.Active() {
		t.Error("expected expired after 5m idle")
	}

	// Touch after expiry does not revive it.
	s.Touch()
	if s.Active() {
		t.Error("expected touch not to revive an expired session")
	}
}
