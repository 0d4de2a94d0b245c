// Package status provides a thread-safe status tracker for the bilge
// monitor daemon. It is read by the web portal and the periodic status
// log line.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/bilge-monitor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	ConfigPath  string
}

// Counts tracks notable occurrences since startup.
type Counts struct {
	Emergencies    int
	Alerts         int
	SensorErrors   int
	SilenceToggles int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	LevelCm       float64
	SensorValid   bool
	Tier1Active   bool
	Tier2Active   bool
	HornOn        bool
	Silenced      bool
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the per-tick machine view. Called from the poll loop.
func (t *Tracker) Update(state logic.State, levelCm float64, sensorValid, tier1, tier2, hornOn, silenced bool) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.LevelCm = levelCm
	t.snap.SensorValid = sensorValid
	t.snap.Tier1Active = tier1
	t.snap.Tier2Active = tier2
	t.snap.HornOn = hornOn
	t.snap.Silenced = silenced
	t.mu.Unlock()
}

// CountEmergency increments the emergency entry counter.
func (t *Tracker) CountEmergency() {
	t.mu.Lock()
	t.snap.Counts.Emergencies++
	t.mu.Unlock()
}

// CountAlert increments the sent-alert counter.
func (t *Tracker) CountAlert() {
	t.mu.Lock()
	t.snap.Counts.Alerts++
	t.mu.Unlock()
}

// CountSensorError increments the sensor error counter.
func (t *Tracker) CountSensorError() {
	t.mu.Lock()
	t.snap.Counts.SensorErrors++
	t.mu.Unlock()
}

// CountSilenceToggle increments the silence toggle counter.
func (t *Tracker) CountSilenceToggle() {
	t.mu.Lock()
	t.snap.Counts.SilenceToggles++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
