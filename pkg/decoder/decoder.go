// Package decoder turns one captured pulse train into validated bytes. It is
// parameterized by a protocol Config and dispatches to the bit assembler of
// the configured encoding.
package decoder

import (
	"errors"
	"fmt"

	"pulsedec/pkg/dht"
	"pulsedec/pkg/manchester"
	"pulsedec/pkg/nec"
	"pulsedec/pkg/pulse"
)

// ErrExtraneousCapture marks captures whose length does not match the
// protocol. They are skipped, not decoded.
var ErrExtraneousCapture = errors.New("extraneous capture")

// Result is the outcome of one decode call.
type Result struct {
	Frame pulse.Frame
	// Reading is set for DHT frames, also if the checksum failed.
	Reading *dht.Reading
	// Command is set for standard 4 byte pulse distance frames.
	Command *nec.Command
	// Checksum holds an advisory integrity failure of a frame that is still usable.
	Checksum error
}

func (r Result) String() string {
	s := r.Frame.String()
	switch {
	case r.Reading != nil:
		s += ", " + r.Reading.String()
	case r.Command != nil:
		s += fmt.Sprintf(", address 0x%02X, command 0x%02X", r.Command.Address, r.Command.Command)
	}
	if r.Checksum != nil {
		s += " (" + r.Checksum.Error() + ")"
	}
	return s
}

// Decoder is the decode context of one receiver channel. It owns a scratch
// buffer for unit pulses, so a Decoder must not be used by more than one
// goroutine at a time; independent Decoders are safe to use concurrently.
type Decoder struct {
	cfg     Config
	scratch []pulse.UnitPulse
}

// New validates cfg and returns a Decoder for it.
func New(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Decoder{
		cfg:     cfg,
		scratch: make([]pulse.UnitPulse, 0, pulse.MaxUnitPulses(cfg.maxSymbols())),
	}, nil
}

// Config returns the protocol configuration of d.
func (d *Decoder) Config() Config {
	return d.cfg
}

// Decode decodes one complete capture.
//
// Structural faults (length, preamble, invalid widths of manchester code)
// return an error and no frame. A DHT checksum failure returns the frame and
// reading together with a ChecksumMismatch error. Pulse distance checksum
// failures are advisory and reported in Result.Checksum.
func (d *Decoder) Decode(symbols []pulse.RawSymbol) (Result, error) {
	var r Result

	if limit := d.cfg.maxSymbols(); len(symbols) > limit {
		return r, pulse.Errorf(pulse.IncompleteFrame, limit, "capture of %d symbols exceeds %d", len(symbols), limit)
	}
	if want := d.cfg.ExpectedSymbols; want > 0 && len(symbols) != want {
		return r, fmt.Errorf("%w: %w", ErrExtraneousCapture,
			pulse.Errorf(pulse.IncompleteFrame, -1, "%d symbols, want %d", len(symbols), want))
	}

	switch d.cfg.Encoding {
	case DHTMarkSpace, PulseDistance:
		return d.decodeSymbols(symbols)
	case Manchester, DiffManchester:
		return d.decodeUnits(symbols)
	}
	return r, fmt.Errorf("%w %d", ErrUnknownEncoding, int(d.cfg.Encoding))
}

// decodeSymbols handles the encodings that read bits from raw symbol pairs.
func (d *Decoder) decodeSymbols(symbols []pulse.RawSymbol) (Result, error) {
	var r Result

	payload, offset, err := pulse.StripSymbols(symbols, d.cfg.Start, d.cfg.Stop)
	if err != nil {
		return r, err
	}
	if err = d.checkBits(len(payload)); err != nil {
		return r, err
	}

	if d.cfg.Encoding == DHTMarkSpace {
		r.Frame = dht.Assemble(payload, offset, d.cfg.DHT)
		reading, err := dht.Parse(r.Frame)
		r.Reading = &reading
		return r, err
	}

	r.Frame = nec.Assemble(payload, offset, d.cfg.Width)
	r.Checksum = nec.Check(r.Frame)
	if cmd, ok := nec.Unmarshal(r.Frame); ok {
		r.Command = &cmd
	}
	return r, nil
}

// decodeUnits handles the encodings that read bits from normalized unit pulses.
func (d *Decoder) decodeUnits(symbols []pulse.RawSymbol) (Result, error) {
	var r Result

	units, err := pulse.Normalize(d.scratch, symbols, d.cfg.Width, d.cfg.Lenient)
	d.scratch = units[:0]
	if err != nil {
		return r, err
	}

	payload, err := pulse.Strip(units, d.cfg.Start, d.cfg.Stop)
	if err != nil {
		return r, err
	}

	r.Frame = manchester.Decode(payload, d.cfg.Encoding == DiffManchester)
	if err = d.checkBits(r.Frame.BitCount); err != nil {
		return Result{}, err
	}
	return r, nil
}

func (d *Decoder) checkBits(n int) error {
	if want := d.cfg.NumDataBits; want > 0 && n != want {
		return pulse.Errorf(pulse.IncompleteFrame, -1, "%d data bits, want %d", n, want)
	}
	return nil
}
