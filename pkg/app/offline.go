package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"pulsedec/pkg/decoder"
	"pulsedec/pkg/manchester"
	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

var ErrInvalidCapture = errors.New("invalid capture")

// ReadCaptures reads captured frames from a yaml document. The document is a
// list of frames, every frame a list of [level0, duration0, level1, duration1]
// rows with durations in µs. A row of two fields is a terminal half symbol.
//
//	- - [low, 2000, high, 20]
//	  - [low, 82, high, 82]
func ReadCaptures(r io.Reader) ([][]pulse.RawSymbol, error) {
	var rows [][][]string
	if err := yaml.NewDecoder(r).Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	captures := make([][]pulse.RawSymbol, 0, len(rows))
	for i, frame := range rows {
		symbols := make([]pulse.RawSymbol, 0, len(frame))
		for j, row := range frame {
			s, err := parseSymbol(row)
			if err != nil {
				return nil, fmt.Errorf("frame %d, symbol %d: %w", i, j, err)
			}
			symbols = append(symbols, s)
		}
		captures = append(captures, symbols)
	}

	return captures, nil
}

func parseSymbol(row []string) (pulse.RawSymbol, error) {
	var s pulse.RawSymbol
	var err error

	if len(row) != 2 && len(row) != 4 {
		return s, fmt.Errorf("%w: %d fields, want 4", ErrInvalidCapture, len(row))
	}

	if s.Level0, s.Duration0, err = parseHalf(row[0], row[1]); err != nil {
		return s, err
	}
	if len(row) == 2 {
		s.Level1 = port.High
		if s.Level0 == port.High {
			s.Level1 = port.Low
		}
		return s, nil
	}

	s.Level1, s.Duration1, err = parseHalf(row[2], row[3])
	return s, err
}

func parseHalf(level, duration string) (port.Level, uint32, error) {
	l, err := port.ParseLevel(level)
	if err != nil {
		return l, 0, fmt.Errorf("%w: %v", ErrInvalidCapture, err)
	}
	if l == port.Either {
		return l, 0, fmt.Errorf("%w: measured level %q", ErrInvalidCapture, level)
	}

	d, err := strconv.ParseUint(duration, 10, 32)
	if err != nil {
		return l, 0, fmt.Errorf("%w: duration %q", ErrInvalidCapture, duration)
	}
	return l, uint32(d), nil
}

// Decode decodes every capture with cfg and writes one line per capture to w.
// It returns the number of captures that failed to decode.
func Decode(w io.Writer, cfg decoder.Config, captures [][]pulse.RawSymbol) (int, error) {
	d, err := decoder.New(cfg)
	if err != nil {
		return 0, err
	}

	failed := 0
	for i, symbols := range captures {
		res, err := d.Decode(symbols)
		if err != nil {
			failed++
			debug.DebugLog.Printf("capture %d: %v", i, symbols)
			if res.Reading != nil {
				_, err = fmt.Fprintf(w, "capture %d: %v: %v\n", i, err, res)
			} else {
				_, err = fmt.Fprintf(w, "capture %d: %v\n", i, err)
			}
		} else {
			_, err = fmt.Fprintf(w, "capture %d: %v\n", i, res)
		}
		if err != nil {
			return failed, err
		}
	}

	return failed, nil
}

// Calibrate estimates the pulse width of manchester code from all captures
// and writes it as protocol configuration to w.
func Calibrate(w io.Writer, captures [][]pulse.RawSymbol) (pulse.WidthSpec, error) {
	var symbols []pulse.RawSymbol
	for _, c := range captures {
		symbols = append(symbols, c...)
	}

	spec, err := manchester.Calibrate(symbols)
	if err != nil {
		return spec, err
	}

	b, err := yaml.Marshal(struct {
		PulseWidth uint32 `yaml:"pulsewidth"`
		Threshold  uint32 `yaml:"threshold"`
	}{spec.Base, spec.Tolerance})
	if err != nil {
		return spec, err
	}

	_, err = w.Write(b)
	return spec, err
}
