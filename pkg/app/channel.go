package app

import (
	"errors"
	"sync"
	"time"

	"pulsedec/pkg/app/config"
	"pulsedec/pkg/capture"
	"pulsedec/pkg/decoder"
	"pulsedec/pkg/dht"
	"pulsedec/pkg/nec"
	"pulsedec/pkg/pulse"
	"pulsedec/pkg/raspberry"

	"github.com/womat/debug"
)

// Measurement is the last good decode of a channel.
type Measurement struct {
	TimeStamp time.Time
	Frame     pulse.Frame
	Reading   *dht.Reading
	Command   *nec.Command
}

// changed reports whether m carries another value than o.
func (m Measurement) changed(o Measurement) bool {
	switch {
	case m.Reading != nil && o.Reading != nil:
		return *m.Reading != *o.Reading
	case m.Command != nil && o.Command != nil:
		return *m.Command != *o.Command
	}
	return m.Frame.String() != o.Frame.String()
}

// channel is one receiver line and its decoder.
type channel struct {
	config   config.ChannelConfig
	line     *raspberry.Line
	receiver *capture.Receiver
	// decoder is only used by the service goroutine
	decoder *decoder.Decoder

	sync.RWMutex
	last  Measurement
	valid bool
	stats Stats
}

func newChannel(c config.ChannelConfig, d *decoder.Decoder) *channel {
	return &channel{config: c, decoder: d}
}

// service waits for captured frames until the receiver stops.
func (ch *channel) service(frames <-chan capture.Frame) {
	for f := range frames {
		ch.handle(f)
	}
	debug.DebugLog.Printf("channel %q: receiver stopped", ch.config.Name)
}

// handle decodes a frame and saves a valid result as last measurement.
func (ch *channel) handle(f capture.Frame) {
	name := ch.config.Name

	ch.count(func(s *Stats) { s.Frames++ })
	if f.Truncated {
		ch.count(func(s *Stats) { s.Truncated++ })
	}

	res, err := ch.decoder.Decode(f.Symbols)
	switch {
	case errors.Is(err, decoder.ErrExtraneousCapture):
		debug.DebugLog.Printf("channel %q: %v", name, err)
		ch.count(func(s *Stats) { s.Extraneous++ })
		return
	case errors.Is(err, pulse.ErrChecksumMismatch):
		debug.ErrorLog.Printf("channel %q: %v, %v discarded", name, err, res)
		ch.count(func(s *Stats) { s.Failed++ })
		return
	case err != nil:
		debug.ErrorLog.Printf("channel %q: %v", name, err)
		ch.count(func(s *Stats) { s.Failed++ })
		return
	}

	if res.Reading != nil {
		if err = res.Reading.Check(); err != nil {
			debug.ErrorLog.Printf("channel %q: %v: %v", name, err, res.Reading)
			ch.count(func(s *Stats) { s.Failed++ })
			return
		}
	}
	if res.Checksum != nil {
		debug.DebugLog.Printf("channel %q: %v", name, res.Checksum)
	}

	m := Measurement{
		TimeStamp: time.Now(),
		Frame:     res.Frame,
		Reading:   res.Reading,
		Command:   res.Command,
	}

	ch.Lock()
	changed := !ch.valid || m.changed(ch.last)
	ch.last, ch.valid = m, true
	ch.stats.Decoded++
	ch.Unlock()

	if changed {
		debug.InfoLog.Printf("channel %q: %v", name, res)
		return
	}
	debug.DebugLog.Printf("channel %q: %v", name, res)
}

// Last returns the last good measurement.
func (ch *channel) Last() (Measurement, bool) {
	ch.RLock()
	defer ch.RUnlock()
	return ch.last, ch.valid
}

func (ch *channel) count(f func(*Stats)) {
	ch.Lock()
	defer ch.Unlock()
	f(&ch.stats)
}
