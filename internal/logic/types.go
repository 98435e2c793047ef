// Package logic contains the pure decision logic for the irrigation controller.
// This package has NO external dependencies (no GPIO, MQTT, Modbus, or time.Sleep).
package logic

// SensorReading is one validity-tagged sample of all four channels.
// When Valid is false, TemperatureC and HumidityPct are always 0.
type SensorReading struct {
	TemperatureC float64
	HumidityPct  float64
	SoilRaw      int // inverted scale: higher = drier
	RainRaw      int // inverted scale: higher = less rain
	Valid        bool
}

// Reason explains why the policy asked for watering.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonSoilDryNoRain
	ReasonHotOrDryAir
)

func (r Reason) String() string {
	switch r {
	case ReasonSoilDryNoRain:
		return "SOIL_DRY_NO_RAIN"
	case ReasonHotOrDryAir:
		return "HOT_OR_DRY_AIR"
	default:
		return "NONE"
	}
}

// ActuationIntent is the policy output for a single reading.
type ActuationIntent struct {
	ShouldRun bool
	Reason    Reason
}

// PumpState is the logical state of the pump.
type PumpState int

const (
	PumpOff PumpState = iota
	PumpOn
)

// Label returns the telemetry literal for the state.
func (s PumpState) Label() string {
	if s == PumpOn {
		return "ON"
	}
	return "OFF"
}

func (s PumpState) String() string {
	return s.Label()
}

// Thresholds are the calibration values the policy compares against.
type Thresholds struct {
	SoilDry        int     // soil raw above this is dry
	RainDry        int     // rain raw above this means no rain
	HotTempC       float64 // temperature above this is hot
	DryHumidityPct float64 // humidity below this is dry air
}

// DefaultThresholds returns the calibration the deployed sensors were tuned with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SoilDry:        2700,
		RainDry:        4000,
		HotTempC:       31.0,
		DryHumidityPct: 50.0,
	}
}
