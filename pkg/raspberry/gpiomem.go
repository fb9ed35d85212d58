//go:build linux

package raspberry

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/gpio"

	"pulsedec/pkg/port"
)

// MemChip accesses the gpio registers mapped from /dev/gpiomem. It serves
// kernels without the gpio character device.
type MemChip struct {
	// opened is the time base of the edge timestamps
	opened time.Time

	pl    sync.Mutex
	lines map[int]*Line
}

// OpenMem maps the GPIO memory range from /dev/gpiomem.
func OpenMem() (*MemChip, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}
	return &MemChip{opened: time.Now(), lines: map[int]*Line{}}, nil
}

// NewLine watches the BCM pin p for both edges.
// There can only be one watcher on the pin at a time.
func (c *MemChip) NewLine(p int, terminator string, debounce time.Duration) (*Line, error) {
	c.pl.Lock()
	defer c.pl.Unlock()

	if _, ok := c.lines[p]; ok {
		return nil, fmt.Errorf("pin %v already used", p)
	}

	pin := gpio.NewPin(p)
	pin.Input()

	switch terminator {
	case "pullup":
		pin.PullUp()
	case "pulldown":
		pin.PullDown()
	case "none":
	default:
		return nil, ErrInvalidParam
	}

	line := newLine(debounce)
	line.read = func() (int, error) {
		if pin.Read() {
			return 1, nil
		}
		return 0, nil
	}
	line.lastValue, _ = line.read()

	// the register interface reports no edge direction, it is derived from
	// the level read in the handler
	handler := func(pin *gpio.Pin) {
		t := time.Since(c.opened)
		if pin.Read() {
			line.edge(t, port.RisingEdge)
			return
		}
		line.edge(t, port.FallingEdge)
	}

	if err := pin.Watch(gpio.EdgeBoth, handler); err != nil {
		return nil, err
	}

	line.release = func() error {
		pin.Unwatch()
		c.pl.Lock()
		defer c.pl.Unlock()
		delete(c.lines, p)
		return nil
	}

	c.lines[p] = line
	return line, nil
}

// Close removes the interrupt handlers and unmaps GPIO memory
func (c *MemChip) Close() error {
	return gpio.Close()
}
