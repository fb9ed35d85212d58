// Package raspberry is the watcher for gpio ports
package raspberry

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/womat/debug"

	"pulsedec/pkg/port"
)

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrNotSupported = errors.New("gpio is not supported on this platform")
)

// Backends to access the gpio lines.
const (
	// Gpiod uses the gpio character device, edges are timestamped by the kernel.
	Gpiod = "gpiod"
	// GpioMem uses the memory mapped registers of /dev/gpiomem, edges are
	// timestamped when the handler runs.
	GpioMem = "gpiomem"
)

// Chip controls a set of lines.
type Chip interface {
	// NewLine requests control of a single line.
	// If granted, control is maintained until the Line is closed.
	// Watch the line for edge changes and send the changes after bounce timeout to chanel C.
	NewLine(gpio int, terminator string, debounce time.Duration) (*Line, error)
	// Close releases the Chip.
	//
	// It does not release any lines which may be requested - they must be closed
	// independently.
	Close() error
}

// Line represents a single requested line.
type Line struct {
	// send edge changes to channel
	C chan port.Event

	debounce time.Duration
	// read returns the current value of the line, 0 or 1.
	read       func() (int, error)
	lastValue  int
	debouncing atomic.Bool
	// release returns the line to the chip and stops the event handler.
	release func() error

	rl     sync.RWMutex
	closed bool
	quit   chan struct{}
	once   sync.Once
}

func newLine(debounce time.Duration) *Line {
	return &Line{
		C:        make(chan port.Event),
		debounce: debounce,
		quit:     make(chan struct{}),
	}
}

// edge handles an edge of the line detected at t.
// Without a bounce time the edge is sent immediately. Otherwise the line is
// sampled again after the bounce time and only a changed value is sent.
func (l *Line) edge(t time.Duration, typ port.EventType) {
	if l.debounce == 0 {
		l.send(port.Event{Type: typ, Timestamp: t})
		return
	}

	if !l.debouncing.CompareAndSwap(false, true) {
		debug.ErrorLog.Println("bounce signal detected")
		return
	}

	go func(t time.Duration) {
		defer l.debouncing.Store(false)

		time.Sleep(l.debounce)

		v, e := l.read()
		if e != nil {
			debug.ErrorLog.Println(e)
			return
		}

		if v == l.lastValue {
			debug.ErrorLog.Println("no changed value after bounce delay")
			return
		}

		switch v {
		case 0:
			l.send(port.Event{Type: port.FallingEdge, Timestamp: t + l.debounce})
		case 1:
			l.send(port.Event{Type: port.RisingEdge, Timestamp: t + l.debounce})
		default:
			debug.ErrorLog.Printf("invalid pin value: %v", v)
			return
		}

		l.lastValue = v
	}(t)
}

// send delivers evt unless the line is closed.
func (l *Line) send(evt port.Event) {
	l.rl.RLock()
	defer l.rl.RUnlock()

	if l.closed {
		return
	}

	select {
	case l.C <- evt:
	case <-l.quit:
	}
}

// Close releases all resources held by the requested line and closes C.
//
// Note that this includes waiting for any running event handler to return.
// As a consequence the Close must not be called from the context of the event
// handler - the Close should be called from a different goroutine.
func (l *Line) Close() error {
	var err error

	l.once.Do(func() {
		close(l.quit)
		if l.release != nil {
			err = l.release()
		}

		l.rl.Lock()
		defer l.rl.Unlock()
		l.closed = true
		close(l.C)
	})

	return err
}
