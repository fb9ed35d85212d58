// Package pulse is the timing core shared by all decoders: it classifies
// measured durations, splits double width pulses, strips preambles and packs
// the resulting bits into bytes.
//
// All durations are in microseconds, the resolution of the capture layer.
package pulse

import (
	"fmt"

	"pulsedec/pkg/port"
)

// RawSymbol is the native capture unit: two consecutive line segments.
// A zero duration marks an unused (terminal) half of the symbol.
type RawSymbol struct {
	Level0    port.Level
	Duration0 uint32
	Level1    port.Level
	Duration1 uint32
}

func (s RawSymbol) String() string {
	return fmt.Sprintf("[%v %d, %v %d]", s.Level0, s.Duration0, s.Level1, s.Duration1)
}

// pulses returns the number of non terminal halves of the symbol.
func (s RawSymbol) pulses() int {
	n := 0
	if s.Duration0 != 0 {
		n++
	}
	if s.Duration1 != 0 {
		n++
	}
	return n
}

// UnitPulse is one normalized, single width pulse.
type UnitPulse struct {
	Level    port.Level
	Duration uint32
}

// WidthSpec defines the acceptance window [Base-Tolerance, Base+Tolerance].
// Tolerance must stay below 50% of Base, otherwise single and double widths
// overlap; see Validate.
type WidthSpec struct {
	Base      uint32
	Tolerance uint32
}

// Class is the result of classifying one measured duration.
type Class int

const (
	Invalid Class = iota
	Single
	Double
)

func (c Class) String() string {
	switch c {
	case Single:
		return "single"
	case Double:
		return "double"
	}
	return "invalid"
}

// Validate checks the configuration invariant tolerance < 50% of base.
func (w WidthSpec) Validate() error {
	if w.Base == 0 {
		return fmt.Errorf("pulse width must be greater than 0")
	}
	if 2*w.Tolerance >= w.Base {
		return fmt.Errorf("threshold %dus must be below 50%% of pulse width %dus", w.Tolerance, w.Base)
	}
	return nil
}

// InThreshold reports whether duration lies within the window of the
// multiplier-fold width, the tolerance is scaled by the same factor.
//
// For example Base = 850, Tolerance = 30:
//
//	duration = 832, multiplier 1: 820 <= 832 <= 880, true
//	duration = 818, multiplier 1: false
//	duration = 1700, multiplier 2: 1640 <= 1700 <= 1760, true
func (w WidthSpec) InThreshold(duration uint32, multiplier uint32) bool {
	base := int64(w.Base) * int64(multiplier)
	tol := int64(w.Tolerance) * int64(multiplier)
	d := int64(duration)
	return base-tol <= d && d <= base+tol
}

// Classify classifies one duration. Single is checked before Double.
func Classify(duration uint32, w WidthSpec) Class {
	switch {
	case w.InThreshold(duration, 1):
		return Single
	case w.InThreshold(duration, 2):
		return Double
	}
	return Invalid
}
