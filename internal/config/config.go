// Package config loads the irrigation controller configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/mqtt"
	"github.com/sweeney/irrigation-controller/internal/network"
	"github.com/sweeney/irrigation-controller/internal/pump"
	"github.com/sweeney/irrigation-controller/internal/sensor"
)

// DefaultSearchPaths returns the config file search order.
func DefaultSearchPaths() []string {
	return []string{
		"irrigation.yaml",
		"/etc/irrigation-controller/config.yaml",
	}
}

// FindConfig locates the config file.
// If explicit is non-empty, it must exist. Otherwise DefaultSearchPaths is
// searched and the first existing file is returned; an empty path with a nil
// error means none was found and defaults apply.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Config is the top-level configuration.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Timing     TimingConfig     `yaml:"timing"`
	Pins       PinsConfig       `yaml:"pins"`
	Modbus     ModbusConfig     `yaml:"modbus"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// DeviceConfig identifies this controller in telemetry.
type DeviceConfig struct {
	ID string `yaml:"id"`
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	Topic          string        `yaml:"topic"`
	StatusTopic    string        `yaml:"status_topic"` // lifecycle events; empty disables
	ClientIDPrefix string        `yaml:"client_id_prefix"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
}

// ThresholdsConfig holds the policy calibration.
type ThresholdsConfig struct {
	SoilDry        int     `yaml:"soil_dry"`
	RainDry        int     `yaml:"rain_dry"`
	HotTempC       float64 `yaml:"hot_temp_c"`
	DryHumidityPct float64 `yaml:"dry_humidity_pct"`
}

// TimingConfig holds the loop and actuation delays.
type TimingConfig struct {
	Pulse        time.Duration `yaml:"pulse"`
	Cooldown     time.Duration `yaml:"cooldown"`
	Idle         time.Duration `yaml:"idle"`
	SensorSettle time.Duration `yaml:"sensor_settle"`
	NetworkPoll  time.Duration `yaml:"network_poll"`
}

// PinsConfig selects the GPIO lines.
type PinsConfig struct {
	Chip        string `yaml:"chip"`
	Relay       int    `yaml:"relay"`
	SensorPower int    `yaml:"sensor_power"`
}

// ModbusConfig describes the sensor bus.
type ModbusConfig struct {
	Protocol            string        `yaml:"protocol"`
	Address             string        `yaml:"address"`
	BaudRate            int           `yaml:"baud_rate"`
	DataBits            int           `yaml:"data_bits"`
	StopBits            int           `yaml:"stop_bits"`
	Parity              string        `yaml:"parity"`
	Timeout             time.Duration `yaml:"timeout"`
	ClimateSlaveID      int           `yaml:"climate_slave_id"`
	TemperatureRegister int           `yaml:"temperature_register"`
	HumidityRegister    int           `yaml:"humidity_register"`
	ADCSlaveID          int           `yaml:"adc_slave_id"`
	SoilChannel         int           `yaml:"soil_channel"`
	RainChannel         int           `yaml:"rain_channel"`
	BreakerFailures     int           `yaml:"breaker_failures"`
	BreakerOpen         time.Duration `yaml:"breaker_open"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	th := logic.DefaultThresholds()
	pt := pump.DefaultTiming()
	return &Config{
		Device: DeviceConfig{ID: "MakerFeatherS3_01"},
		MQTT: MQTTConfig{
			Broker:         "tcp://localhost:1883",
			Topic:          mqtt.DefaultTopic,
			ClientIDPrefix: mqtt.DefaultClientIDPrefix,
			RetryInterval:  5 * time.Second,
		},
		Thresholds: ThresholdsConfig{
			SoilDry:        th.SoilDry,
			RainDry:        th.RainDry,
			HotTempC:       th.HotTempC,
			DryHumidityPct: th.DryHumidityPct,
		},
		Timing: TimingConfig{
			Pulse:        pt.Pulse,
			Cooldown:     pt.Cooldown,
			Idle:         2 * time.Second,
			SensorSettle: 100 * time.Millisecond,
			NetworkPoll:  network.DefaultPollInterval,
		},
		Pins: PinsConfig{
			Chip:        gpio.DefaultChip,
			Relay:       gpio.DefaultPinRelay,
			SensorPower: gpio.DefaultPinSensorPower,
		},
		Modbus: ModbusConfig{
			Protocol:            "rtu",
			Address:             "/dev/ttyUSB0",
			BaudRate:            9600,
			DataBits:            8,
			StopBits:            1,
			Parity:              "N",
			Timeout:             time.Second,
			ClimateSlaveID:      1,
			TemperatureRegister: 1,
			HumidityRegister:    2,
			ADCSlaveID:          2,
			SoilChannel:         sensor.DefaultChannels.Soil,
			RainChannel:         sensor.DefaultChannels.Rain,
			BreakerFailures:     3,
			BreakerOpen:         30 * time.Second,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load reads the config file at path. Environment variables of the form
// ${VAR} are expanded before parsing. Keys absent from the file keep their
// Default values. An empty path returns Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the controller cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Device.ID == "" {
		errs = append(errs, errors.New("device.id is required"))
	}
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, errors.New("mqtt.topic is required"))
	}
	if c.MQTT.StatusTopic != "" && c.MQTT.StatusTopic == c.MQTT.Topic {
		errs = append(errs, errors.New("mqtt.status_topic must differ from mqtt.topic"))
	}
	if c.MQTT.RetryInterval <= 0 {
		errs = append(errs, errors.New("mqtt.retry_interval must be positive"))
	}
	if c.Timing.Pulse <= 0 {
		errs = append(errs, errors.New("timing.pulse must be positive"))
	}
	if c.Timing.Cooldown < 0 || c.Timing.Idle < 0 || c.Timing.SensorSettle < 0 {
		errs = append(errs, errors.New("timing values must not be negative"))
	}
	if c.Pins.Relay < 0 || c.Pins.SensorPower < 0 {
		errs = append(errs, errors.New("pins must not be negative"))
	}
	if c.Pins.Relay == c.Pins.SensorPower {
		errs = append(errs, fmt.Errorf("pins.relay and pins.sensor_power are both %d", c.Pins.Relay))
	}
	if c.Thresholds.DryHumidityPct < 0 || c.Thresholds.DryHumidityPct > 100 {
		errs = append(errs, fmt.Errorf("thresholds.dry_humidity_pct %v out of range 0-100", c.Thresholds.DryHumidityPct))
	}
	type field struct {
		name string
		v    int
	}
	for _, f := range []field{
		{"modbus.climate_slave_id", c.Modbus.ClimateSlaveID},
		{"modbus.adc_slave_id", c.Modbus.ADCSlaveID},
	} {
		if f.v < 1 || f.v > 247 {
			errs = append(errs, fmt.Errorf("%s %d out of range 1-247", f.name, f.v))
		}
	}
	for _, f := range []field{
		{"modbus.temperature_register", c.Modbus.TemperatureRegister},
		{"modbus.humidity_register", c.Modbus.HumidityRegister},
		{"modbus.soil_channel", c.Modbus.SoilChannel},
		{"modbus.rain_channel", c.Modbus.RainChannel},
	} {
		if f.v < 0 || f.v > 0xFFFF {
			errs = append(errs, fmt.Errorf("%s %d out of range", f.name, f.v))
		}
	}
	return errors.Join(errs...)
}

// PolicyThresholds returns the policy calibration.
func (c *Config) PolicyThresholds() logic.Thresholds {
	return logic.Thresholds{
		SoilDry:        c.Thresholds.SoilDry,
		RainDry:        c.Thresholds.RainDry,
		HotTempC:       c.Thresholds.HotTempC,
		DryHumidityPct: c.Thresholds.DryHumidityPct,
	}
}

// PumpTiming returns the pulse and cooldown durations.
func (c *Config) PumpTiming() pump.Timing {
	return pump.Timing{Pulse: c.Timing.Pulse, Cooldown: c.Timing.Cooldown}
}

// SensorChannels returns the ADC channel assignment.
func (c *Config) SensorChannels() sensor.Channels {
	return sensor.Channels{Soil: c.Modbus.SoilChannel, Rain: c.Modbus.RainChannel}
}

// SensorBus returns the Modbus bus settings.
func (c *Config) SensorBus() sensor.ModbusConfig {
	m := c.Modbus
	return sensor.ModbusConfig{
		Protocol:            m.Protocol,
		Address:             m.Address,
		BaudRate:            m.BaudRate,
		DataBits:            m.DataBits,
		StopBits:            m.StopBits,
		Parity:              m.Parity,
		Timeout:             m.Timeout,
		ClimateSlaveID:      byte(m.ClimateSlaveID),
		TemperatureRegister: uint16(m.TemperatureRegister),
		HumidityRegister:    uint16(m.HumidityRegister),
		ADCSlaveID:          byte(m.ADCSlaveID),
		BreakerFailures:     uint32(m.BreakerFailures),
		BreakerOpen:         m.BreakerOpen,
	}
}
