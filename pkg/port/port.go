// Package port holds the definition of a physical port
package port

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventType indicates the type of change to the line active state.
//
// Note that for active low lines a low line level results in a high active
// state.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates an inactive to active event (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive event (high to low).
	FallingEdge
)

type Event struct {
	// Timestamp indicates the time the event was detected.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
}

// Before returns the line level that was held until the edge occurred.
func (t EventType) Before() Level {
	if t == RisingEdge {
		return Low
	}
	return High
}

// Level is the logic level of a line segment.
type Level int

const (
	// Low indicates a logical 0.
	Low Level = 0
	// High indicates a logical 1.
	High Level = 1
	// Either matches both levels, it is only meaningful in preamble patterns.
	Either Level = 2
)

// Matches reports whether the measured level satisfies l.
func (l Level) Matches(measured Level) bool {
	return l == Either || l == measured
}

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case High:
		return "high"
	case Either:
		return "either"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

var ErrUnknownLevel = errors.New("unknown level")

// ParseLevel converts the config file spelling of a level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "0":
		return Low, nil
	case "high", "1":
		return High, nil
	case "either", "any", "x":
		return Either, nil
	}
	return Low, fmt.Errorf("%w %q", ErrUnknownLevel, s)
}
