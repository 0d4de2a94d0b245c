// Package config persists the operator-tunable settings (thresholds,
// sensor calibration, notification targets) in a JSON file. Values are
// hot-reloadable: callers take a fresh snapshot every poll tick instead
// of caching.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sweeney/bilge-monitor/internal/logic"
	"github.com/sweeney/bilge-monitor/internal/sensor"
)

// Settings is everything the portal can change.
type Settings struct {
	Version int `json:"version"`

	Tier1LevelCm     float64 `json:"tier1_level_cm"`
	Tier2LevelCm     float64 `json:"tier2_level_cm"`
	NotifyIntervalMs int     `json:"notify_interval_ms"`
	HornOnMs         int     `json:"horn_on_ms"`
	HornOffMs        int     `json:"horn_off_ms"`

	Calibration sensor.Calibration `json:"calibration"`

	PhoneNumber       string `json:"phone_number"`
	DiscordWebhookURL string `json:"discord_webhook_url"`
}

// DefaultSettings returns the factory defaults: tiers at 30/50cm,
// alerts every 15 minutes, a 1s/1s horn duty cycle.
func DefaultSettings() Settings {
	return Settings{
		Version:          1,
		Tier1LevelCm:     30,
		Tier2LevelCm:     50,
		NotifyIntervalMs: 900000,
		HornOnMs:         1000,
		HornOffMs:        1000,
		Calibration:      sensor.DefaultCalibration(),
	}
}

// Store holds settings behind an RWMutex and writes them through to disk
// on every change.
type Store struct {
	mu        sync.RWMutex
	path      string
	data      Settings
	firstBoot bool
}

// Open loads the store from path, creating it with defaults when the
// file does not exist. A corrupt file is replaced by defaults rather
// than taking the monitor down.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		s.data = DefaultSettings()
		s.firstBoot = true
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	var d Settings
	if err := json.Unmarshal(b, &d); err != nil {
		d = DefaultSettings()
	}
	s.data = normalize(d)
	return s, nil
}

// normalize backfills zero values so a hand-edited or older file cannot
// produce a frozen throttler or a zero-length horn phase.
func normalize(d Settings) Settings {
	def := DefaultSettings()
	if d.Tier1LevelCm <= 0 {
		d.Tier1LevelCm = def.Tier1LevelCm
	}
	if d.Tier2LevelCm <= d.Tier1LevelCm {
		d.Tier2LevelCm = d.Tier1LevelCm + (def.Tier2LevelCm - def.Tier1LevelCm)
	}
	if d.NotifyIntervalMs <= 0 {
		d.NotifyIntervalMs = def.NotifyIntervalMs
	}
	if d.HornOnMs <= 0 {
		d.HornOnMs = def.HornOnMs
	}
	if d.HornOffMs <= 0 {
		d.HornOffMs = def.HornOffMs
	}
	if d.Calibration.ZeroMv == 0 {
		d.Calibration = def.Calibration
	}
	return d
}

// FirstBoot reports whether the settings file had to be created, i.e.
// the device has never been configured.
func (s *Store) FirstBoot() bool {
	return s.firstBoot
}

// Snapshot returns a copy of the full settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Thresholds returns the live tunables in the core's terms.
func (s *Store) Thresholds() logic.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return logic.Thresholds{
		Tier1LevelCm:   s.data.Tier1LevelCm,
		Tier2LevelCm:   s.data.Tier2LevelCm,
		NotifyInterval: time.Duration(s.data.NotifyIntervalMs) * time.Millisecond,
		HornOn:         time.Duration(s.data.HornOnMs) * time.Millisecond,
		HornOff:        time.Duration(s.data.HornOffMs) * time.Millisecond,
	}
}

// SetThresholds validates and persists the five tunables. The tier
// ordering invariant lives here: the core assumes tier2 > tier1 on
// entry and never re-checks it.
func (s *Store) SetThresholds(tier1, tier2 float64, notifyIntervalMs, hornOnMs, hornOffMs int) error {
	if tier1 <= 0 {
		return fmt.Errorf("tier1 level must be positive, got %.2f", tier1)
	}
	if tier2 <= tier1 {
		return fmt.Errorf("tier2 level (%.2f) must exceed tier1 (%.2f)", tier2, tier1)
	}
	if notifyIntervalMs <= 0 || hornOnMs <= 0 || hornOffMs <= 0 {
		return fmt.Errorf("intervals must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Tier1LevelCm = tier1
	s.data.Tier2LevelCm = tier2
	s.data.NotifyIntervalMs = notifyIntervalMs
	s.data.HornOnMs = hornOnMs
	s.data.HornOffMs = hornOffMs
	return s.save()
}

// Calibration returns the live sensor calibration.
func (s *Store) Calibration() sensor.Calibration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Calibration
}

// SetCalibrationZero records the voltage at 0cm and drops back to
// single-point mode until a new span point is taken.
func (s *Store) SetCalibrationZero(mv int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Calibration.ZeroMv = mv
	s.data.Calibration.TwoPoint = false
	return s.save()
}

// SetCalibrationSpan records a second calibration point and enables
// two-point conversion.
func (s *Store) SetCalibrationSpan(mv int, levelCm float64) error {
	if levelCm <= 0 {
		return fmt.Errorf("span level must be positive, got %.2f", levelCm)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if mv == s.data.Calibration.ZeroMv {
		return fmt.Errorf("span voltage equals zero-point voltage (%dmV)", mv)
	}
	s.data.Calibration.SpanMv = mv
	s.data.Calibration.SpanLevelCm = levelCm
	s.data.Calibration.TwoPoint = true
	return s.save()
}

// PhoneNumber returns the SMS destination, empty if unset.
func (s *Store) PhoneNumber() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.PhoneNumber
}

// SetPhoneNumber persists the SMS destination.
func (s *Store) SetPhoneNumber(number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.PhoneNumber = number
	return s.save()
}

// WebhookURL returns the Discord webhook, empty if unset.
func (s *Store) WebhookURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.DiscordWebhookURL
}

// SetWebhookURL persists the Discord webhook.
func (s *Store) SetWebhookURL(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.DiscordWebhookURL = url
	return s.save()
}

// save writes the file atomically. Caller holds the lock.
func (s *Store) save() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
