// Package manchester decodes normal and differential manchester code from
// normalized unit pulses, as sent by Philips RC5 style remote controls.
// https://en.wikipedia.org/wiki/Manchester_code
// https://en.wikipedia.org/wiki/Differential_Manchester_encoding

// https://techdocs.altium.com/display/FPGA/Philips+RC5+Infrared+Transmission+Protocol

package manchester

import (
	"errors"
	"math"
	"sort"

	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"

	"github.com/womat/debug"
	"gonum.org/v1/gonum/stat"
)

// ErrNotEnoughSamples is returned if a capture is too short to calibrate.
var ErrNotEnoughSamples = errors.New("not enough samples to calculate bit periods")

const (
	// minSamples is the minimal count of durations needed to calculate the clock.
	minSamples = 8
	// sigmaFactor scales the standard deviation of the half bit periods to the tolerance.
	sigmaFactor = 3
)

// Decode consumes payload two unit pulses at a time, MSB first. An odd
// payload is padded with a zero width low pulse.
//
// The mapping is kept compatible with the remotes it was written for:
//
//	normal:        low->high is 1, high->low is 0, no transition is logged and left 0
//	differential:  any transition is 0, no transition is 1
func Decode(payload []pulse.UnitPulse, differential bool) pulse.Frame {
	payload = pulse.PadEven(payload)
	w := pulse.NewBitWriter(len(payload)/2, pulse.MSBFirst)

	for i := 0; i < len(payload); i += 2 {
		p0, p1 := payload[i], payload[i+1]

		switch {
		case p0.Level == port.Low && p1.Level == port.High:
			w.Write(!differential)
		case p0.Level == port.High && p1.Level == port.Low:
			w.Skip()
		case differential:
			w.Write(true)
		default:
			debug.ErrorLog.Printf("undetermined manchester encoding [%d] %v, %v", i, p0.Level, p1.Level)
			w.Skip()
		}
	}

	return w.Frame()
}

// Calibrate estimates the pulse width of a manchester capture.
//
// The durations are sorted, the lowest and highest samples are dropped and
// everything longer than 150% of the shortest sample is taken as a full bit
// period. The base width is the mean of the half bit periods (full periods
// counted as two halves), the tolerance three standard deviations, clamped
// below 50% of the base width.
func Calibrate(symbols []pulse.RawSymbol) (pulse.WidthSpec, error) {
	samples := make([]float64, 0, 2*len(symbols))
	for _, s := range symbols {
		if s.Duration0 != 0 {
			samples = append(samples, float64(s.Duration0))
		}
		if s.Duration1 != 0 {
			samples = append(samples, float64(s.Duration1))
		}
	}

	if len(samples) < minSamples {
		return pulse.WidthSpec{}, ErrNotEnoughSamples
	}

	sort.Float64s(samples)
	samples = samples[1 : len(samples)-1]

	// since the slice is sorted, the first entry is a half bit period
	halfBitPeriod := samples[0]
	halves := make([]float64, 0, len(samples))
	for _, t := range samples {
		switch {
		case t <= halfBitPeriod*1.5:
			halves = append(halves, t)
		case t <= halfBitPeriod*2.5:
			halves = append(halves, t/2)
		default:
			// leader or gap, not part of the clock
		}
	}

	mean, std := stat.MeanStdDev(halves, nil)
	if math.IsNaN(std) {
		std = 0
	}

	base := uint32(math.Round(mean))
	tol := uint32(math.Ceil(sigmaFactor * std))
	if floor := base / 20; tol < floor {
		tol = floor
	}
	if limit := (base - 1) / 2; tol > limit {
		tol = limit
	}

	debug.InfoLog.Printf("calibrated clock: %d samples, half bit period %dus ±%dus", len(halves), base, tol)
	return pulse.WidthSpec{Base: base, Tolerance: tol}, nil
}
