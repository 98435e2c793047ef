package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/network"
	"github.com/sweeney/irrigation-controller/internal/status"
)

func newTestTracker() *status.Tracker {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return status.NewTracker(start, status.Config{
		DeviceID:   "MakerFeatherS3_01",
		Broker:     "tcp://192.168.1.200:1883",
		Topic:      "iot",
		Thresholds: logic.DefaultThresholds(),
		PulseMs:    2000,
		CooldownMs: 10000,
		IdleMs:     2000,
		HTTPAddr:   ":8080",
	})
}

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	tr := newTestTracker()
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Observe(logic.NewReading(25.5, 61.2, 2800, 4200), logic.ActuationIntent{ShouldRun: true, Reason: logic.ReasonSoilDryNoRain}, time.Now())
	tr.RecordPulse()
	tr.SetPump(logic.PumpOff)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
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

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.DeviceID != "MakerFeatherS3_01" {
		t.Errorf("DeviceID: got %q", sj.Status.DeviceID)
	}
	if sj.Status.Pump != "OFF" {
		t.Errorf("Pump: got %q, want OFF", sj.Status.Pump)
	}
	if sj.Status.Watering != "SOIL_DRY_NO_RAIN" {
		t.Errorf("Watering: got %q", sj.Status.Watering)
	}
	if sj.Status.Reading == nil || sj.Status.Reading.Soil != 2800 {
		t.Errorf("Reading: got %+v", sj.Status.Reading)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Pulses != 1 || sj.Status.Counts.Iterations != 1 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if sj.Status.Config.HotTempC != 31 {
		t.Errorf("Config.HotTempC: got %v, want 31", sj.Status.Config.HotTempC)
	}
}

func TestJSONBeforeFirstReading(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Reading != nil {
		t.Errorf("expected no reading, got %+v", sj.Status.Reading)
	}
	if sj.Status.Pump != "OFF" {
		t.Errorf("Pump: got %q, want OFF", sj.Status.Pump)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&network.Info{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Observe(logic.NewReading(0, 0, 1200, 900), logic.ActuationIntent{}, time.Now())
	tr.RecordPulse()
	tr.RecordPulse()
	tr.RecordPulse()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	for _, want := range []string{"MakerFeatherS3_01", `id="pump-state" class="on">ON`, "sensor fault", "1200"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "No reading yet.") {
		t.Error("expected placeholder before the first reading")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.MQTT.Connected {
		t.Error("expected MQTT disconnected initially")
	}

	tr.RecordPulse()
	tr.RecordReconnect()

	sj2 := getJSON(t, ts.URL+"/index.json")
	if sj2.Status.Pump != "ON" {
		t.Errorf("Pump: got %q, want ON", sj2.Status.Pump)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after reconnect")
	}
	if sj2.Status.Counts.Reconnects != 1 {
		t.Errorf("Reconnects: got %d, want 1", sj2.Status.Counts.Reconnects)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Observe(logic.NewReading(25.5, 61.2, 2800, 4200), logic.ActuationIntent{}, time.Now())

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	for _, want := range []string{
		`irrigation_iterations_total{device_id="MakerFeatherS3_01"} 1`,
		`irrigation_soil_raw{device_id="MakerFeatherS3_01"} 2800`,
		`irrigation_reading_valid{device_id="MakerFeatherS3_01"} 1`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestCollectorOmitsReadingGaugesBeforeFirstReading(t *testing.T) {
	tr := newTestTracker()
	c := NewCollector(tr)

	if n := testutil.CollectAndCount(c); n != 8 {
		t.Errorf("metrics before first reading: got %d, want 8", n)
	}

	tr.Observe(logic.NewReading(20, 60, 100, 100), logic.ActuationIntent{}, time.Now())
	if n := testutil.CollectAndCount(c); n != 13 {
		t.Errorf("metrics after first reading: got %d, want 13", n)
	}
}

func TestCollectorValues(t *testing.T) {
	tr := newTestTracker()
	tr.Observe(logic.NewReading(0, 0, 3000, 4100), logic.ActuationIntent{}, time.Now())
	tr.RecordPulse()
	tr.RecordPulse()
	tr.RecordPulse()
	c := NewCollector(tr)

	expected := `
# HELP irrigation_pump_on 1 while the pump relay is energised.
# TYPE irrigation_pump_on gauge
irrigation_pump_on{device_id="MakerFeatherS3_01"} 1
# HELP irrigation_pump_pulses_total Watering pulses delivered.
# TYPE irrigation_pump_pulses_total counter
irrigation_pump_pulses_total{device_id="MakerFeatherS3_01"} 3
# HELP irrigation_sensor_faults_total Readings rejected as invalid.
# TYPE irrigation_sensor_faults_total counter
irrigation_sensor_faults_total{device_id="MakerFeatherS3_01"} 1
# HELP irrigation_reading_valid 1 if the last reading passed the validity check.
# TYPE irrigation_reading_valid gauge
irrigation_reading_valid{device_id="MakerFeatherS3_01"} 0
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"irrigation_pump_on", "irrigation_pump_pulses_total", "irrigation_sensor_faults_total", "irrigation_reading_valid")
	if err != nil {
		t.Error(err)
	}
}
