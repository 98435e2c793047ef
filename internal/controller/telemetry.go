package controller

import (
	"log"

	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/status"
)

// Telemetry reports pump snapshots over MQTT and mirrors them into the
// status tracker. It is the pump's Announcer and the loop's final reporter.
type Telemetry struct {
	deviceID  string
	publisher TelemetryPublisher
	tracker   *status.Tracker
}

// NewTelemetry creates a Telemetry. tracker may be nil.
func NewTelemetry(deviceID string, publisher TelemetryPublisher, tracker *status.Tracker) *Telemetry {
	return &Telemetry{
		deviceID:  deviceID,
		publisher: publisher,
		tracker:   tracker,
	}
}

// Announce publishes the ON snapshot at the start of a pulse.
func (t *Telemetry) Announce(reading logic.SensorReading, state logic.PumpState) {
	if t.tracker != nil {
		t.tracker.RecordPulse()
	}
	t.Report(reading, state)
}

// PulseEnded marks the pump off in the tracker as soon as the relay drops,
// so status surfaces do not report ON through the cooldown.
func (t *Telemetry) PulseEnded() {
	if t.tracker != nil {
		t.tracker.SetPump(logic.PumpOff)
	}
}

// Report publishes one telemetry message. Failures are logged and counted;
// the message is not retried.
func (t *Telemetry) Report(reading logic.SensorReading, state logic.PumpState) {
	if err := t.publisher.Publish(t.deviceID, reading, state); err != nil {
		log.Printf("controller: %v", err)
		if t.tracker != nil {
			t.tracker.RecordPublishError()
		}
		return
	}
	log.Printf("controller: sent temp=%.2f humid=%.2f soil=%d rain=%d pump=%s",
		reading.TemperatureC, reading.HumidityPct, reading.SoilRaw, reading.RainRaw, state.Label())
}
