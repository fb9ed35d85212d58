package decoder

import (
	"fmt"
	"sort"

	"pulsedec/pkg/dht"
	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"
)

// DHT22 is the sensor frame: host start signal and sensor response as start
// pattern, 40 data symbols and a terminal low pulse.
func DHT22() Config {
	return Config{
		Name:     "dht22",
		Encoding: DHTMarkSpace,
		DHT:      dht.DefaultTiming,
		Start: pulse.Pattern{
			{Level: port.Low, Width: 1},
			{Level: port.High, Width: 1},
			{Level: port.Low, Width: 1},
			{Level: port.High, Width: 1},
		},
		Stop:            pulse.Pattern{{Level: port.Low, Width: 1}},
		NumDataBits:     8 * dht.FrameBytes,
		ExpectedSymbols: dht.FrameSymbols,
		MaxSymbols:      64,
	}
}

// MusicalFidelity is the differential manchester remote of Musical Fidelity
// amplifiers. Widths between 790 and 910us have been seen.
//
// The frame has 26 bits, the first 3 are start bits: two fixed start bits and
// a toggle bit which changes with every key press. The remote alternates
// between the start pulses low, high, low, high, low, high and low, high,
// low, low, high, high.
func MusicalFidelity() Config {
	return Config{
		Name:     "musical-fidelity",
		Encoding: DiffManchester,
		Width:    pulse.WidthSpec{Base: 850, Tolerance: 60},
		Start: pulse.Pattern{
			{Level: port.Low, Width: 1},
			{Level: port.High, Width: 1},
			{Level: port.Low, Width: 1},
			{Level: port.Either, Width: 1},
			{Level: port.Either, Width: 1},
			{Level: port.Either, Width: 1},
		},
		NumDataBits: 23,
	}
}

// LGTV is the NEC style remote of LG televisions.
func LGTV() Config {
	return Config{
		Name:     "lg-tv",
		Encoding: PulseDistance,
		Width:    pulse.WidthSpec{Base: 562, Tolerance: 60},
		Start: pulse.Pattern{
			{Level: port.Low, Width: 16},
			{Level: port.High, Width: 8},
		},
		Stop:        pulse.Pattern{{Level: port.Low, Width: 1}},
		NumDataBits: 32,
	}
}

var presets = map[string]func() Config{
	"dht22":            DHT22,
	"musical-fidelity": MusicalFidelity,
	"lg-tv":            LGTV,
}

// Preset returns the configuration of a known protocol by name.
func Preset(name string) (Config, error) {
	p, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w %q", ErrUnknownPreset, name)
	}
	return p(), nil
}

// Presets lists the names of the known protocols.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
