package sensor

import "errors"

// Sample is one scripted set of channel values.
type Sample struct {
	TempC    float64
	Humidity float64
	Soil     int
	Rain     int
}

// FakeSource is a test double that serves scripted samples on both the
// climate and analog interfaces. Each ReadClimate call advances to the next
// sample; ReadRaw returns values from the current sample.
type FakeSource struct {
	// Samples contains scripted values. If exhausted, the last sample repeats.
	Samples []Sample

	// Channels maps analog channel numbers to soil and rain.
	Channels Channels

	// ClimateError, if set, will be returned by ReadClimate.
	ClimateError error

	// AnalogError, if set, will be returned by ReadRaw.
	AnalogError error

	// Reads counts ReadClimate calls.
	Reads int

	current Sample
	index   int
}

// NewFakeSource creates a FakeSource using DefaultChannels.
func NewFakeSource(samples ...Sample) *FakeSource {
	return &FakeSource{Samples: samples, Channels: DefaultChannels}
}

// ReadClimate returns the next scripted temperature and humidity.
func (f *FakeSource) ReadClimate() (float64, float64, error) {
	f.Reads++
	if len(f.Samples) > 0 {
		f.current = f.Samples[f.index]
		if f.index < len(f.Samples)-1 {
			f.index++
		}
	}
	if f.ClimateError != nil {
		return 0, 0, f.ClimateError
	}
	if len(f.Samples) == 0 {
		return 0, 0, errors.New("no samples configured")
	}
	return f.current.TempC, f.current.Humidity, nil
}

// ReadRaw returns the soil or rain value of the current sample.
func (f *FakeSource) ReadRaw(channel int) (int, error) {
	if f.AnalogError != nil {
		return 0, f.AnalogError
	}
	switch channel {
	case f.Channels.Soil:
		return f.current.Soil, nil
	case f.Channels.Rain:
		return f.current.Rain, nil
	default:
		return 0, errors.New("unknown channel")
	}
}
