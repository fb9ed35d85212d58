// Package capture cuts the edge stream of a receiver line into frames of raw
// symbols, the way a remote control peripheral does: the time between two edges
// is one pulse and a silent line ends the frame.
package capture

import (
	"time"

	"github.com/womat/debug"

	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"
)

const (
	// DefaultIdle is the gap that ends a frame if Config.Idle is not set.
	DefaultIdle = 10 * time.Millisecond
	// DefaultMaxSymbols bounds a frame if Config.MaxSymbols is not set.
	DefaultMaxSymbols = 128
)

// Config contains the timing of a receiver line.
type Config struct {
	// Idle is the time without edges that ends a frame.
	Idle time.Duration
	// Glitch suppresses pulses shorter than this, 0 keeps all pulses.
	Glitch time.Duration
	// MaxSymbols truncates longer frames.
	MaxSymbols int
}

// Frame is one captured pulse train.
type Frame struct {
	// Start is the timestamp of the first edge of the frame.
	Start time.Duration
	// Symbols are the captured pulses, the last half of the last symbol is
	// zero if the frame has an odd number of pulses.
	Symbols []pulse.RawSymbol
	// Truncated is set if the frame exceeded MaxSymbols; the rest of the
	// pulse train up to the next idle gap is dropped.
	Truncated bool
}

// stateType represents the state of the receiver.
type stateType int

const (
	// idle waits for the first edge of a frame.
	idle stateType = iota
	// receiving collects pulses.
	receiving
	// overflow drops pulses until the line is idle again.
	overflow
)

type segment struct {
	level    port.Level
	duration time.Duration
}

// Receiver collects the edges of one line into frames.
type Receiver struct {
	cfg Config
	// rx receives the edge events of the line.
	rx <-chan port.Event
	// C delivers complete frames. It is closed when the receiver stops.
	C chan Frame

	state stateType
	// start is the timestamp of the first edge of the current frame.
	start time.Duration
	// last is the timestamp of the edge that began the pending pulse.
	last time.Duration
	// segments are the complete pulses of the current frame.
	segments []segment

	quit chan struct{}
	done chan struct{}
}

// New starts a receiver reading edges from c.
func New(c <-chan port.Event, cfg Config) *Receiver {
	if cfg.Idle <= 0 {
		cfg.Idle = DefaultIdle
	}
	if cfg.MaxSymbols <= 0 {
		cfg.MaxSymbols = DefaultMaxSymbols
	}

	r := &Receiver{
		cfg:      cfg,
		rx:       c,
		C:        make(chan Frame, 4),
		segments: make([]segment, 0, 2*cfg.MaxSymbols),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go r.run()
	return r
}

// Close stops the receiver and waits until the run loop has terminated.
// A pending frame is discarded.
func (r *Receiver) Close() error {
	select {
	case <-r.done:
	default:
		close(r.quit)
		<-r.done
	}
	return nil
}

// run receives the edges on channel rx until the channel is closed or the
// receiver is stopped.
func (r *Receiver) run() {
	defer close(r.done)
	defer close(r.C)

	timer := time.NewTimer(r.cfg.Idle)
	timer.Stop()

	for {
		select {
		case <-r.quit:
			timer.Stop()
			return

		case <-timer.C:
			r.flush()

		case evt, open := <-r.rx:
			if !open {
				timer.Stop()
				r.flush()
				return
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			r.edge(evt)
			if r.state != idle {
				timer.Reset(r.cfg.Idle)
			}
		}
	}
}

// edge adds the pulse that ends with evt to the current frame.
func (r *Receiver) edge(evt port.Event) {
	if r.state != idle && evt.Timestamp-r.last > r.cfg.Idle {
		r.flush()
	}

	switch r.state {
	case idle:
		r.state = receiving
		r.start, r.last = evt.Timestamp, evt.Timestamp
		r.segments = r.segments[:0]
		return
	case overflow:
		r.last = evt.Timestamp
		return
	}

	d := evt.Timestamp - r.last
	if d < r.cfg.Glitch {
		r.glitch()
		return
	}

	r.last = evt.Timestamp
	if len(r.segments) == 2*r.cfg.MaxSymbols {
		debug.ErrorLog.Printf("capture exceeds %d symbols, frame truncated", r.cfg.MaxSymbols)
		r.emit(true)
		r.state = overflow
		return
	}

	r.segments = append(r.segments, segment{level: evt.Type.Before(), duration: d})
}

// glitch removes a pulse shorter than the glitch filter. The pulse before it
// continues through the glitch; at the start of a frame the frame is dropped.
func (r *Receiver) glitch() {
	n := len(r.segments)
	if n == 0 {
		debug.DebugLog.Println("glitch at start of frame ignored")
		r.state = idle
		return
	}

	r.last -= r.segments[n-1].duration
	r.segments = r.segments[:n-1]
}

// flush ends the current frame.
func (r *Receiver) flush() {
	if r.state == receiving && len(r.segments) > 0 {
		r.emit(false)
	}
	r.state = idle
	r.segments = r.segments[:0]
}

// emit pairs the pending segments into symbols and delivers the frame.
func (r *Receiver) emit(truncated bool) {
	f := Frame{
		Start:     r.start,
		Symbols:   pair(r.segments),
		Truncated: truncated,
	}
	debug.TraceLog.Printf("frame of %d symbols received", len(f.Symbols))

	select {
	case r.C <- f:
	case <-r.quit:
	}
}

// pair packs pulses into raw symbols. An odd pulse count ends with a zero
// duration terminal half of the opposite level.
func pair(segments []segment) []pulse.RawSymbol {
	symbols := make([]pulse.RawSymbol, 0, (len(segments)+1)/2)

	for i := 0; i < len(segments); i += 2 {
		s := pulse.RawSymbol{Level0: segments[i].level, Duration0: micros(segments[i].duration)}
		if i+1 < len(segments) {
			s.Level1, s.Duration1 = segments[i+1].level, micros(segments[i+1].duration)
		} else {
			s.Level1 = opposite(s.Level0)
		}
		symbols = append(symbols, s)
	}

	return symbols
}

// micros converts d to the µs resolution of a raw symbol. Durations that do
// not fit are clamped, they are invalid for every protocol anyway.
func micros(d time.Duration) uint32 {
	us := d.Microseconds()
	switch {
	case us <= 0:
		// a zero duration is reserved for the terminal marker
		return 1
	case us > int64(^uint32(0)):
		return ^uint32(0)
	}
	return uint32(us)
}

func opposite(l port.Level) port.Level {
	if l == port.Low {
		return port.High
	}
	return port.Low
}
