// Package mqtt provides the telemetry transport, message formatting, and
// connection supervision, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strconv"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// DefaultTopic is the topic telemetry and reconnect announcements go to.
const DefaultTopic = "iot"

// ReconnectedPayload is published once after every successful (re)connect.
var ReconnectedPayload = []byte(`{"status":"Reconnected"}`)

// Transport is the publish/subscribe connection the controller depends on.
type Transport interface {
	// IsConnected reports whether the connection is currently up.
	IsConnected() bool

	// Connect opens a new session with the given client id.
	Connect(clientID string) error

	// Publish sends payload to topic. Delivery is best-effort.
	Publish(topic string, payload []byte) error

	// Poll services the transport's internal state. Called once per iteration.
	Poll()

	// Close disconnects from the broker.
	Close() error
}

// Telemetry is the per-iteration state report consumed by the backend.
type Telemetry struct {
	DeviceID string  `json:"deviceId"`
	Temp     float64 `json:"temp"`
	Humid    float64 `json:"humid"`
	Soil     int     `json:"soil"`
	Rain     int     `json:"rain"`
	Pump     string  `json:"pump"`
}

// NewTelemetry builds the message for one reading and pump state.
func NewTelemetry(deviceID string, r logic.SensorReading, state logic.PumpState) Telemetry {
	return Telemetry{
		DeviceID: deviceID,
		Temp:     r.TemperatureC,
		Humid:    r.HumidityPct,
		Soil:     r.SoilRaw,
		Rain:     r.RainRaw,
		Pump:     state.Label(),
	}
}

// FormatTelemetry renders t byte-for-byte in the layout existing consumers
// expect: fixed field order, ", " separators, two decimals on floats.
func FormatTelemetry(t Telemetry) []byte {
	id, _ := json.Marshal(t.DeviceID)

	b := make([]byte, 0, 128)
	b = append(b, `{"deviceId":`...)
	b = append(b, id...)
	b = append(b, `, "temp":`...)
	b = strconv.AppendFloat(b, t.Temp, 'f', 2, 64)
	b = append(b, `, "humid":`...)
	b = strconv.AppendFloat(b, t.Humid, 'f', 2, 64)
	b = append(b, `, "soil":`...)
	b = strconv.AppendInt(b, int64(t.Soil), 10)
	b = append(b, `, "rain":`...)
	b = strconv.AppendInt(b, int64(t.Rain), 10)
	b = append(b, `, "pump":`...)
	pump, _ := json.Marshal(t.Pump)
	b = append(b, pump...)
	b = append(b, '}')
	return b
}
