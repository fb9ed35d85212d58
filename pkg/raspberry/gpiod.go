//go:build linux

package raspberry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/gpiod"

	"pulsedec/pkg/port"
)

// DefaultChip is the gpio character device of the Raspberry Pi header.
const DefaultChip = "gpiochip0"

// CharDevChip represents a single GPIO chip that controls a set of lines.
type CharDevChip struct {
	gpiodChip *gpiod.Chip
}

// Open opens the gpio lines with the given backend. The chip name is only used
// by the gpiod backend.
func Open(backend, chip string) (Chip, error) {
	switch backend {
	case "", Gpiod:
		return OpenChip(chip)
	case GpioMem:
		return OpenMem()
	}
	return nil, fmt.Errorf("%w: gpio backend %q", ErrInvalidParam, backend)
}

// OpenChip opens a GPIO character device.
func OpenChip(name string) (*CharDevChip, error) {
	if name == "" {
		name = DefaultChip
	}

	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &CharDevChip{gpiodChip: c}, nil
}

// NewLine requests the line with offset gpio as input with both edges watched.
// There can only be one watcher on the pin at a time.
func (c *CharDevChip) NewLine(gpio int, terminator string, debounce time.Duration) (*Line, error) {
	var err error
	var gl *gpiod.Line
	var ready atomic.Bool

	line := newLine(debounce)
	handler := eventHandler(line, &ready)

	switch terminator {
	case "pullup":
		gl, err = c.gpiodChip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullUp)
	case "pulldown":
		gl, err = c.gpiodChip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullDown)
	case "none":
		gl, err = c.gpiodChip.RequestLine(gpio, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput)
	default:
		return nil, ErrInvalidParam
	}
	if err != nil {
		return nil, err
	}

	line.read = gl.Value
	line.release = gl.Close
	if v, err := gl.Value(); err == nil {
		line.lastValue = v
	}

	// edges are forwarded only after the line is set up
	ready.Store(true)
	return line, nil
}

// eventHandler forwards the kernel timestamped edges to line once ready is set.
func eventHandler(line *Line, ready *atomic.Bool) func(gpiod.LineEvent) {
	return func(evt gpiod.LineEvent) {
		if !ready.Load() {
			return
		}

		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			line.edge(evt.Timestamp, port.RisingEdge)
		case gpiod.LineEventFallingEdge:
			line.edge(evt.Timestamp, port.FallingEdge)
		}
	}
}

// Close releases the Chip.
func (c *CharDevChip) Close() error {
	return c.gpiodChip.Close()
}
