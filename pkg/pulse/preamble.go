package pulse

import (
	"pulsedec/pkg/port"
)

// PatternEntry is one expected pulse of a start or stop sequence.
// Width is the multiple of the base pulse width the pulse spans; it documents
// the protocol and is used to synthesize frames, the matcher only checks levels.
type PatternEntry struct {
	Level port.Level
	Width uint32
}

// Pattern is a fixed start or stop sequence, known at configuration time.
type Pattern []PatternEntry

// Strip verifies start against the head and stop against the tail of pulses
// and returns the payload between them. The payload aliases pulses.
func Strip(pulses []UnitPulse, start, stop Pattern) ([]UnitPulse, error) {
	if len(pulses) < len(start)+len(stop) {
		return nil, Errorf(IncompleteFrame, -1, "%d pulses, start and stop patterns need %d", len(pulses), len(start)+len(stop))
	}

	for i, e := range start {
		if !e.Level.Matches(pulses[i].Level) {
			return nil, Errorf(IncompleteFrame, -1, "start pulse %d is %v, want %v", i, pulses[i].Level, e.Level)
		}
	}

	tail := len(pulses) - len(stop)
	for i, e := range stop {
		if !e.Level.Matches(pulses[tail+i].Level) {
			return nil, Errorf(IncompleteFrame, -1, "stop pulse %d is %v, want %v", i, pulses[tail+i].Level, e.Level)
		}
	}

	return pulses[len(start):tail], nil
}

// PadEven rounds the payload up to an even number of pulses by appending a
// zero width low pulse, so a trailing half bit can still be paired.
func PadEven(payload []UnitPulse) []UnitPulse {
	if len(payload)%2 == 0 {
		return payload
	}
	return append(payload, UnitPulse{Level: port.Low, Duration: 0})
}

// StripSymbols is Strip for decoders working on raw symbol pairs. Patterns
// count pulses, so a two pulse start pattern consumes one symbol; terminal
// zero durations are not counted. It returns the payload symbols and the
// index of the first of them in symbols.
func StripSymbols(symbols []RawSymbol, start, stop Pattern) ([]RawSymbol, int, error) {
	total := 0
	for _, s := range symbols {
		total += s.pulses()
	}
	if total < len(start)+len(stop) {
		return nil, 0, Errorf(IncompleteFrame, -1, "%d pulses, start and stop patterns need %d", total, len(start)+len(stop))
	}

	head := 0
	for p := 0; p < len(start); head++ {
		for _, h := range halves(symbols[head]) {
			if p == len(start) {
				break
			}
			if !start[p].Level.Matches(h) {
				return nil, 0, Errorf(IncompleteFrame, head, "start pulse %d is %v, want %v", p, h, start[p].Level)
			}
			p++
		}
	}

	tail := len(symbols)
	for p := len(stop) - 1; p >= 0; {
		tail--
		hs := halves(symbols[tail])
		for j := len(hs) - 1; j >= 0 && p >= 0; j-- {
			if !stop[p].Level.Matches(hs[j]) {
				return nil, 0, Errorf(IncompleteFrame, tail, "stop pulse %d is %v, want %v", p, hs[j], stop[p].Level)
			}
			p--
		}
	}

	if tail < head {
		return nil, 0, Errorf(IncompleteFrame, -1, "start and stop patterns overlap")
	}
	return symbols[head:tail], head, nil
}

// halves lists the levels of the non terminal halves of s.
func halves(s RawSymbol) []port.Level {
	switch {
	case s.Duration0 != 0 && s.Duration1 != 0:
		return []port.Level{s.Level0, s.Level1}
	case s.Duration0 != 0:
		return []port.Level{s.Level0}
	case s.Duration1 != 0:
		return []port.Level{s.Level1}
	}
	return nil
}
