package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/irrigation-controller/internal/network"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	DeviceID      string       `json:"device_id"`
	Pump          string       `json:"pump"`
	Watering      string       `json:"watering_reason"`
	Reading       *ReadingJSON `json:"reading,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ReadingJSON is the JSON representation of the last sensor reading.
type ReadingJSON struct {
	TemperatureC float64 `json:"temp_c"`
	HumidityPct  float64 `json:"humidity_pct"`
	Soil         int     `json:"soil"`
	Rain         int     `json:"rain"`
	Valid        bool    `json:"valid"`
	Timestamp    string  `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
}

// CountsJSON is the JSON representation of the cumulative counters.
type CountsJSON struct {
	Iterations    int `json:"iterations"`
	Pulses        int `json:"pulses"`
	SensorFaults  int `json:"sensor_faults"`
	Reconnects    int `json:"reconnects"`
	PublishErrors int `json:"publish_errors"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SoilDry        int     `json:"soil_dry"`
	RainDry        int     `json:"rain_dry"`
	HotTempC       float64 `json:"hot_temp_c"`
	DryHumidityPct float64 `json:"dry_humidity_pct"`
	PulseMs        int64   `json:"pulse_ms"`
	CooldownMs     int64   `json:"cooldown_ms"`
	IdleMs         int64   `json:"idle_ms"`
	HTTPAddr       string  `json:"http_addr"`
	StatusTopic    string  `json:"status_topic,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	th := snap.Config.Thresholds
	inner := StatusInner{
		DeviceID:      snap.Config.DeviceID,
		Pump:          snap.Pump.Label(),
		Watering:      snap.Intent.Reason.String(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Topic:     snap.Config.Topic,
		},
		Counts: CountsJSON{
			Iterations:    snap.Counts.Iterations,
			Pulses:        snap.Counts.Pulses,
			SensorFaults:  snap.Counts.SensorFaults,
			Reconnects:    snap.Counts.Reconnects,
			PublishErrors: snap.Counts.PublishErrors,
		},
		Config: ConfigJSON{
			SoilDry:        th.SoilDry,
			RainDry:        th.RainDry,
			HotTempC:       th.HotTempC,
			DryHumidityPct: th.DryHumidityPct,
			PulseMs:        snap.Config.PulseMs,
			CooldownMs:     snap.Config.CooldownMs,
			IdleMs:         snap.Config.IdleMs,
			HTTPAddr:       snap.Config.HTTPAddr,
			StatusTopic:    snap.Config.StatusTopic,
		},
	}
	if snap.HasReading {
		inner.Reading = &ReadingJSON{
			TemperatureC: snap.Reading.TemperatureC,
			HumidityPct:  snap.Reading.HumidityPct,
			Soil:         snap.Reading.SoilRaw,
			Rain:         snap.Reading.RainRaw,
			Valid:        snap.Reading.Valid,
			Timestamp:    snap.ReadingAt.UTC().Format(time.RFC3339),
		}
	}
	inner.Network = buildNetwork(snap.Network)
	return inner
}

func buildNetwork(n *network.Info) *NetworkJSON {
	if n == nil {
		return nil
	}
	return &NetworkJSON{
		Type:       n.Type,
		IP:         n.IP,
		Status:     n.Status,
		Gateway:    n.Gateway,
		WifiStatus: n.WifiStatus,
		SSID:       n.SSID,
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT lifecycle event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
