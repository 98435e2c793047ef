// Package sensor acquires one validity-tagged reading per loop iteration from
// the climate probe and the two analog channels.
package sensor

import (
	"log"
	"math"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// ClimateSource reads the combined temperature/humidity channel.
type ClimateSource interface {
	// ReadClimate returns temperature in Celsius and relative humidity in percent.
	ReadClimate() (tempC, humidityPct float64, err error)
}

// AnalogSource reads raw, unscaled integer samples from analog channels.
type AnalogSource interface {
	ReadRaw(channel int) (int, error)
}

// Channels identifies the analog inputs wired to each sensor.
type Channels struct {
	Soil int
	Rain int
}

// DefaultChannels matches the reference wiring of the ADC module.
var DefaultChannels = Channels{Soil: 0, Rain: 1}

// Reader samples all four values and applies the validity rule.
type Reader struct {
	climate  ClimateSource
	analog   AnalogSource
	channels Channels
}

// NewReader creates a Reader over the given sources.
func NewReader(climate ClimateSource, analog AnalogSource, channels Channels) *Reader {
	return &Reader{
		climate:  climate,
		analog:   analog,
		channels: channels,
	}
}

// Read samples every channel once. It never fails: acquisition errors and
// sentinel values produce a reading with Valid=false.
func (r *Reader) Read() logic.SensorReading {
	tempC, humidity, err := r.climate.ReadClimate()
	if err != nil {
		log.Printf("sensor: climate read error: %v", err)
		tempC, humidity = math.NaN(), math.NaN()
	}

	soil, soilErr := r.analog.ReadRaw(r.channels.Soil)
	if soilErr != nil {
		log.Printf("sensor: soil channel %d read error: %v", r.channels.Soil, soilErr)
		soil = 0
	}

	rain, rainErr := r.analog.ReadRaw(r.channels.Rain)
	if rainErr != nil {
		log.Printf("sensor: rain channel %d read error: %v", r.channels.Rain, rainErr)
		rain = 0
	}

	reading := logic.NewReading(tempC, humidity, soil, rain)
	if soilErr != nil || rainErr != nil {
		reading = reading.Invalidate()
	}

	if !reading.Valid {
		log.Printf("sensor: invalid reading (raw temp=%.2f humid=%.2f soil=%d rain=%d), actuation suppressed",
			tempC, humidity, soil, rain)
	}
	return reading
}
