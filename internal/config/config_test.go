package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irrigation.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestFindConfig_Explicit(t *testing.T) {
	path := writeConfig(t, "device:\n  id: test\n")

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "irrigation.yaml"), []byte("device:\n  id: x\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "irrigation.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "irrigation.yaml")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Device.ID != "MakerFeatherS3_01" {
		t.Errorf("Device.ID: got %q", cfg.Device.ID)
	}
	if cfg.MQTT.Topic != "iot" {
		t.Errorf("MQTT.Topic: got %q, want iot", cfg.MQTT.Topic)
	}
	if cfg.MQTT.ClientIDPrefix != "MakerFeatherClient-" {
		t.Errorf("MQTT.ClientIDPrefix: got %q", cfg.MQTT.ClientIDPrefix)
	}
	if cfg.MQTT.RetryInterval != 5*time.Second {
		t.Errorf("MQTT.RetryInterval: got %v", cfg.MQTT.RetryInterval)
	}
	if cfg.PolicyThresholds() != logic.DefaultThresholds() {
		t.Errorf("thresholds: got %+v", cfg.PolicyThresholds())
	}
	if cfg.Timing.Pulse != 2*time.Second || cfg.Timing.Cooldown != 10*time.Second || cfg.Timing.Idle != 2*time.Second {
		t.Errorf("timing: got %+v", cfg.Timing)
	}
	if cfg.Timing.SensorSettle != 100*time.Millisecond || cfg.Timing.NetworkPoll != 500*time.Millisecond {
		t.Errorf("timing: got %+v", cfg.Timing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
device:
  id: bed-3
mqtt:
  broker: tcp://10.0.0.5:1883
  status_topic: irrigation/bed-3/status
thresholds:
  soil_dry: 2500
  hot_temp_c: 29.5
timing:
  pulse: 3s
modbus:
  protocol: tcp
  address: 10.0.0.9:502
  soil_channel: 4
http:
  addr: ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Device.ID != "bed-3" {
		t.Errorf("Device.ID: got %q", cfg.Device.ID)
	}
	if cfg.MQTT.Broker != "tcp://10.0.0.5:1883" {
		t.Errorf("MQTT.Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Topic != "iot" {
		t.Errorf("MQTT.Topic should keep default, got %q", cfg.MQTT.Topic)
	}
	if cfg.MQTT.StatusTopic != "irrigation/bed-3/status" {
		t.Errorf("MQTT.StatusTopic: got %q", cfg.MQTT.StatusTopic)
	}

	th := cfg.PolicyThresholds()
	if th.SoilDry != 2500 || th.HotTempC != 29.5 {
		t.Errorf("overridden thresholds: got %+v", th)
	}
	if th.RainDry != 4000 || th.DryHumidityPct != 50 {
		t.Errorf("default thresholds lost: got %+v", th)
	}

	pt := cfg.PumpTiming()
	if pt.Pulse != 3*time.Second || pt.Cooldown != 10*time.Second {
		t.Errorf("PumpTiming: got %+v", pt)
	}

	bus := cfg.SensorBus()
	if bus.Protocol != "tcp" || bus.Address != "10.0.0.9:502" {
		t.Errorf("SensorBus: got %+v", bus)
	}
	if bus.ClimateSlaveID != 1 || bus.ADCSlaveID != 2 || bus.BreakerFailures != 3 {
		t.Errorf("SensorBus defaults lost: got %+v", bus)
	}

	ch := cfg.SensorChannels()
	if ch.Soil != 4 || ch.Rain != 1 {
		t.Errorf("SensorChannels: got %+v", ch)
	}

	if cfg.HTTP.Addr != "" {
		t.Errorf("HTTP.Addr should be disabled, got %q", cfg.HTTP.Addr)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("IRRIGATION_TEST_BROKER", "tcp://broker.local:1883")
	path := writeConfig(t, "mqtt:\n  broker: ${IRRIGATION_TEST_BROKER}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("MQTT.Broker: got %q", cfg.MQTT.Broker)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/irrigation.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "timing:\n  pulse: [not a duration\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "timing:\n  pulse: 0s\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "timing.pulse") {
		t.Errorf("error should name the field, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing device id", func(c *Config) { c.Device.ID = "" }, "device.id"},
		{"missing broker", func(c *Config) { c.MQTT.Broker = "" }, "mqtt.broker"},
		{"missing topic", func(c *Config) { c.MQTT.Topic = "" }, "mqtt.topic"},
		{"status topic same as topic", func(c *Config) { c.MQTT.StatusTopic = c.MQTT.Topic }, "mqtt.status_topic"},
		{"zero retry", func(c *Config) { c.MQTT.RetryInterval = 0 }, "mqtt.retry_interval"},
		{"negative cooldown", func(c *Config) { c.Timing.Cooldown = -time.Second }, "timing values"},
		{"shared pin", func(c *Config) { c.Pins.SensorPower = c.Pins.Relay }, "pins.relay"},
		{"humidity out of range", func(c *Config) { c.Thresholds.DryHumidityPct = 120 }, "dry_humidity_pct"},
		{"slave id zero", func(c *Config) { c.Modbus.ADCSlaveID = 0 }, "modbus.adc_slave_id"},
		{"register out of range", func(c *Config) { c.Modbus.RainChannel = 70000 }, "modbus.rain_channel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateErrorOrderIsStable(t *testing.T) {
	cfg := Default()
	cfg.Modbus.ClimateSlaveID = 0
	cfg.Modbus.ADCSlaveID = 300
	cfg.Modbus.TemperatureRegister = -1
	cfg.Modbus.RainChannel = 70000

	first := cfg.Validate()
	if first == nil {
		t.Fatal("expected error")
	}
	for i := 0; i < 20; i++ {
		if got := cfg.Validate().Error(); got != first.Error() {
			t.Fatalf("run %d: error text changed:\n%s\nvs\n%s", i, got, first)
		}
	}

	msg := first.Error()
	order := []string{
		"modbus.climate_slave_id",
		"modbus.adc_slave_id",
		"modbus.temperature_register",
		"modbus.rain_channel",
	}
	last := -1
	for _, name := range order {
		idx := strings.Index(msg, name)
		if idx < 0 {
			t.Fatalf("error %q should mention %q", msg, name)
		}
		if idx < last {
			t.Errorf("%q reported out of order in %q", name, msg)
		}
		last = idx
	}
}
