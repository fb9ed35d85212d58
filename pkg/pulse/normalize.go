package pulse

import (
	"pulsedec/pkg/port"

	"github.com/womat/debug"
)

// MaxUnitPulses is the worst case expansion of n raw symbols: both halves of
// every symbol may split into two unit pulses.
func MaxUnitPulses(n int) int {
	return 4 * n
}

// Normalize classifies every duration of symbols against w and appends the
// resulting unit pulses to dst[:0]. Double width pulses are split into two
// halves of duration/2 (remainder dropped); a zero duration is the terminal
// marker of the capture and is skipped.
//
// An invalid width aborts with an InvalidPulseWidth error unless lenient is
// set, in which case the offending half is logged and dropped.
func Normalize(dst []UnitPulse, symbols []RawSymbol, w WidthSpec, lenient bool) ([]UnitPulse, error) {
	if need := MaxUnitPulses(len(symbols)); cap(dst) < need {
		dst = make([]UnitPulse, 0, need)
	}
	out := dst[:0]

	for i, s := range symbols {
		var err error
		if out, err = appendUnits(out, i, s.Level0, s.Duration0, w, lenient); err != nil {
			return out, err
		}
		if out, err = appendUnits(out, i, s.Level1, s.Duration1, w, lenient); err != nil {
			return out, err
		}
	}

	return out, nil
}

func appendUnits(out []UnitPulse, i int, level port.Level, duration uint32, w WidthSpec, lenient bool) ([]UnitPulse, error) {
	if duration == 0 {
		return out, nil
	}

	switch Classify(duration, w) {
	case Single:
		return append(out, UnitPulse{Level: level, Duration: duration}), nil
	case Double:
		half := UnitPulse{Level: level, Duration: duration / 2}
		return append(out, half, half), nil
	}

	if lenient {
		debug.ErrorLog.Printf("erroneous pulse [%d] level=%v width=%dus, skipped", i, level, duration)
		return out, nil
	}
	return out, Errorf(InvalidPulseWidth, i, "%v pulse of %dus outside %d±%dus", level, duration, w.Base, w.Tolerance)
}
