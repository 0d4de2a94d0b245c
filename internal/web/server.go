// Package web serves the status page and the configuration portal for
// the bilge-monitor daemon.
package web

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/bilge-monitor/internal/config"
	"github.com/sweeney/bilge-monitor/internal/logic"
	"github.com/sweeney/bilge-monitor/internal/notify"
	"github.com/sweeney/bilge-monitor/internal/sensor"
	"github.com/sweeney/bilge-monitor/internal/status"
)

// Deps are the collaborators the portal needs. SMS and Discord may be
// nil when the corresponding transport is not configured.
type Deps struct {
	Tracker *status.Tracker
	Store   *config.Store
	Reading func() sensor.Reading
	SMS     notify.Notifier
	Discord notify.Notifier
	Log     *zap.SugaredLogger
}

// Server serves the status page and portal over HTTP.
type Server struct {
	httpServer *http.Server
	deps       Deps
	session    *session
}

// New creates a Server with the given listen address and collaborators.
func New(addr string, deps Deps) *Server {
	s := &Server{deps: deps, session: newSession()}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/reading", s.handleReading)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/calibrate/zero", s.portal(s.handleCalibrateZero))
	mux.HandleFunc("/calibrate/span", s.portal(s.handleCalibrateSpan))
	mux.HandleFunc("/notify/phone", s.portal(s.handleSetPhone))
	mux.HandleFunc("/notify/webhook", s.portal(s.handleSetWebhook))
	mux.HandleFunc("/test/sms", s.portal(s.handleTestSMS))
	mux.HandleFunc("/test/discord", s.portal(s.handleTestDiscord))
	mux.HandleFunc("/session/start", s.handleSessionStart)
	mux.HandleFunc("/session/stop", s.portal(s.handleSessionStop))

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// StartSession opens a configuration session. Called by the poll loop
// when the monitor enters configuration mode.
func (s *Server) StartSession() {
	s.session.Start()
}

// StopSession closes the configuration session.
func (s *Server) StopSession() {
	s.session.Stop()
}

// SessionActive reports whether a portal session is open. The poll loop
// reads this every tick; the monitor leaves configuration mode once it
// goes false.
func (s *Server) SessionActive() bool {
	return s.session.Active()
}

// portal wraps a mutating handler: POST only, configuration session
// required, and every accepted request refreshes the idle deadline.
func (s *Server) portal(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !s.session.Active() {
			http.Error(w, "no configuration session", http.StatusForbidden)
			return
		}
		s.session.Touch()
		h(w, r)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	s.session.Touch()
	snap := s.deps.Tracker.Snapshot()
	set := s.deps.Store.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, set, s.session.Active())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Tracker.Snapshot()
	data, err := status.FormatJSON(snap)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	rd := s.deps.Reading()
	doc := struct {
		Valid      bool    `json:"valid"`
		LevelCm    float64 `json:"level_cm"`
		Millivolts float64 `json:"millivolts"`
		Timestamp  string  `json:"timestamp"`
	}{
		Valid:      rd.Valid,
		LevelCm:    rd.LevelCm,
		Millivolts: rd.Millivolts,
		Timestamp:  rd.Time.UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(s.deps.Store.Snapshot())
	case http.MethodPost:
		s.portal(s.handleConfigUpdate)(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tier1, err := formFloat(r, "tier1_level_cm")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tier2, err := formFloat(r, "tier2_level_cm")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	notifyMs, err := formInt(r, "notify_interval_ms")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hornOnMs, err := formInt(r, "horn_on_ms")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hornOffMs, err := formInt(r, "horn_off_ms")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.deps.Store.SetThresholds(tier1, tier2, notifyMs, hornOnMs, hornOffMs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.deps.Log.Infow("thresholds updated",
		"tier1_cm", tier1, "tier2_cm", tier2,
		"notify_ms", notifyMs, "horn_on_ms", hornOnMs, "horn_off_ms", hornOffMs)
	s.redirectHome(w, r)
}

func (s *Server) handleCalibrateZero(w http.ResponseWriter, r *http.Request) {
	mv := roundMv(s.deps.Reading().Millivolts)
	if err := s.deps.Store.SetCalibrationZero(mv); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.deps.Log.Infow("calibration zero point set", "millivolts", mv)
	s.redirectHome(w, r)
}

func (s *Server) handleCalibrateSpan(w http.ResponseWriter, r *http.Request) {
	levelCm, err := formFloat(r, "level_cm")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mv := roundMv(s.deps.Reading().Millivolts)
	if err := s.deps.Store.SetCalibrationSpan(mv, levelCm); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.deps.Log.Infow("calibration span point set",
		"millivolts", mv, "level_cm", levelCm)
	s.redirectHome(w, r)
}

func (s *Server) handleSetPhone(w http.ResponseWriter, r *http.Request) {
	number := r.FormValue("phone_number")
	if err := s.deps.Store.SetPhoneNumber(number); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.deps.Log.Infow("phone number updated", "set", number != "")
	s.redirectHome(w, r)
}

func (s *Server) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	url := r.FormValue("webhook_url")
	if err := s.deps.Store.SetWebhookURL(url); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.deps.Log.Infow("discord webhook updated", "set", url != "")
	s.redirectHome(w, r)
}

func (s *Server) handleTestSMS(w http.ResponseWriter, r *http.Request) {
	s.handleTest(w, r, s.deps.SMS)
}

func (s *Server) handleTestDiscord(w http.ResponseWriter, r *http.Request) {
	s.handleTest(w, r, s.deps.Discord)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request, n notify.Notifier) {
	if n == nil {
		http.Error(w, "transport not configured", http.StatusConflict)
		return
	}
	if err := n.Send("Boat Monitor: test message from configuration portal"); err != nil {
		s.deps.Log.Warnw("test message failed", "transport", n.Name(), "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.deps.Log.Infow("test message sent", "transport", n.Name())
	s.redirectHome(w, r)
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// A session can only be (re)opened while the monitor is in
	// configuration mode; mode entry itself needs the physical button.
	if s.deps.Tracker.Snapshot().State != logic.StateConfig {
		http.Error(w, "monitor not in configuration mode", http.StatusConflict)
		return
	}
	s.session.Start()
	s.redirectHome(w, r)
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	s.session.Stop()
	s.deps.Log.Info("configuration session closed from portal")
	s.redirectHome(w, r)
}

func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func formFloat(r *http.Request, key string) (float64, error) {
	v, err := strconv.ParseFloat(r.FormValue(key), 64)
	if err != nil {
		return 0, &formError{key: key}
	}
	return v, nil
}

func formInt(r *http.Request, key string) (int, error) {
	v, err := strconv.Atoi(r.FormValue(key))
	if err != nil {
		return 0, &formError{key: key}
	}
	return v, nil
}

func roundMv(mv float64) int {
	return int(math.Round(mv))
}

type formError struct{ key string }

func (e *formError) Error() string {
	return "missing or malformed field: " + e.key
}
