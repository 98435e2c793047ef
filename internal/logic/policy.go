package logic

import "math"

// NewReading builds a SensorReading from raw channel values and applies the
// validity rule: NaN or an exact zero on either climate value marks the
// sensor as faulted and forces both to 0.
func NewReading(tempC, humidity float64, soilRaw, rainRaw int) SensorReading {
	r := SensorReading{
		TemperatureC: tempC,
		HumidityPct:  humidity,
		SoilRaw:      soilRaw,
		RainRaw:      rainRaw,
		Valid:        true,
	}
	if math.IsNaN(tempC) || math.IsNaN(humidity) || tempC == 0 || humidity == 0 {
		return r.Invalidate()
	}
	return r
}

// Invalidate returns a copy of r marked invalid with the climate values zeroed.
func (r SensorReading) Invalidate() SensorReading {
	r.TemperatureC = 0
	r.HumidityPct = 0
	r.Valid = false
	return r
}

// Evaluate maps a reading to an actuation intent. Invalid readings never
// water. Rules are checked in order and the first match wins.
func Evaluate(r SensorReading, th Thresholds) ActuationIntent {
	if !r.Valid {
		return ActuationIntent{}
	}

	if r.SoilRaw > th.SoilDry && r.RainRaw > th.RainDry {
		return ActuationIntent{ShouldRun: true, Reason: ReasonSoilDryNoRain}
	}

	if r.TemperatureC > th.HotTempC || r.HumidityPct < th.DryHumidityPct {
		return ActuationIntent{ShouldRun: true, Reason: ReasonHotOrDryAir}
	}

	return ActuationIntent{}
}
