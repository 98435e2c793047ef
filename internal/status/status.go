// Package status provides a thread-safe status tracker for the irrigation controller.
// The control loop writes to it; HTTP handlers, the metrics collector and the
// lifecycle events read from it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/network"
)

// Config contains daemon configuration for display.
type Config struct {
	DeviceID    string
	Broker      string
	Topic       string
	StatusTopic string
	Thresholds  logic.Thresholds
	PulseMs     int64
	CooldownMs  int64
	IdleMs      int64
	HTTPAddr    string
}

// Counts are cumulative totals since startup.
type Counts struct {
	Iterations    int
	Pulses        int
	SensorFaults  int
	Reconnects    int
	PublishErrors int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Reading       logic.SensorReading
	HasReading    bool
	ReadingAt     time.Time
	Intent        logic.ActuationIntent
	Pump          logic.PumpState
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *network.Info
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

// Observe records the reading and decision of one loop iteration.
func (t *Tracker) Observe(r logic.SensorReading, intent logic.ActuationIntent, at time.Time) {
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.HasReading = true
	t.snap.ReadingAt = at
	t.snap.Intent = intent
	t.snap.Counts.Iterations++
	if !r.Valid {
		t.snap.Counts.SensorFaults++
	}
	t.mu.Unlock()
}

// SetPump sets the pump state.
func (t *Tracker) SetPump(state logic.PumpState) {
	t.mu.Lock()
	t.snap.Pump = state
	t.mu.Unlock()
}

// RecordPulse marks the start of a watering pulse.
func (t *Tracker) RecordPulse() {
	t.mu.Lock()
	t.snap.Pump = logic.PumpOn
	t.snap.Counts.Pulses++
	t.mu.Unlock()
}

// RecordReconnect counts a successful (re)connection to the broker.
func (t *Tracker) RecordReconnect() {
	t.mu.Lock()
	t.snap.Counts.Reconnects++
	t.snap.MQTTConnected = true
	t.mu.Unlock()
}

// RecordPublishError counts a failed telemetry publish.
func (t *Tracker) RecordPublishError() {
	t.mu.Lock()
	t.snap.Counts.PublishErrors++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *network.Info) {
	t.mu.Lock()
	t.snap.Network = info
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
