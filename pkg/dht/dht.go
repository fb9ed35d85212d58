// Package dht decodes the single wire protocol of the DHT22 (AM2302)
// temperature and humidity sensor.
//
// After the host start signal the sensor answers with 80us low and 80us high,
// then sends 40 bits. Every bit starts with about 50us low (the separator),
// the length of the following high level decides the bit value:
//
//	70us high     "1"
//	26-28us high  "0"
//
// Captured by a symbol based receiver this is 43 raw symbols: two preamble
// symbols, 40 data symbols and a terminal symbol.
package dht

import (
	"errors"
	"fmt"

	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"

	"github.com/womat/debug"
)

var (
	ErrInvalidHumidity    = errors.New("invalid humidity")
	ErrInvalidTemperature = errors.New("invalid temperature")
)

const (
	// FrameSymbols is the number of raw symbols of a complete capture.
	FrameSymbols = 43
	// FrameBytes is humidity (2), temperature (2) and checksum (1).
	FrameBytes = 5

	// sensor measuring range
	tMax = 80
	tMin = -40
	hMax = 100
	hMin = 0
)

// Timing holds the acceptance windows of the mark-space encoding.
type Timing struct {
	Separator pulse.WidthSpec
	One       pulse.WidthSpec
	Zero      pulse.WidthSpec
}

// DefaultTiming accepts separators of 44..56us, ones of 65..75us and zeros of 20..34us.
var DefaultTiming = Timing{
	Separator: pulse.WidthSpec{Base: 50, Tolerance: 6},
	One:       pulse.WidthSpec{Base: 70, Tolerance: 5},
	Zero:      pulse.WidthSpec{Base: 27, Tolerance: 7},
}

// Assemble maps every payload symbol to one bit, MSB first.
// level0/duration0 is the bit separator and level1/duration1 the bit indicator.
// A symbol that fits neither window is logged and leaves its bit 0; offset is
// the index of payload[0] in the capture and only used for logging.
func Assemble(payload []pulse.RawSymbol, offset int, t Timing) pulse.Frame {
	w := pulse.NewBitWriter(len(payload), pulse.MSBFirst)

	for i, s := range payload {
		switch {
		case s.Level0 != port.Low || !t.Separator.InThreshold(s.Duration0, 1):
			debug.ErrorLog.Printf("error in bit separator data[%d] level0=%v duration0=%d", offset+i, s.Level0, s.Duration0)
			w.Skip()
		case s.Level1 != port.High:
			debug.ErrorLog.Printf("error in data[%d] level1=%v duration1=%d", offset+i, s.Level1, s.Duration1)
			w.Skip()
		case t.One.InThreshold(s.Duration1, 1):
			w.Write(true)
		case t.Zero.InThreshold(s.Duration1, 1):
			w.Skip()
		default:
			debug.ErrorLog.Printf("error in low level data[%d] level1=%v duration1=%d", offset+i, s.Level1, s.Duration1)
			w.Skip()
		}
	}

	return w.Frame()
}

// Reading is one measurement of the sensor.
type Reading struct {
	Humidity    float64
	Temperature float64
}

func (r Reading) String() string {
	return fmt.Sprintf("humidity %.1f%%, temperature %.1f°C", r.Humidity, r.Temperature)
}

// Parse converts a 5 byte frame into a reading and verifies the checksum:
// byte 4 is the sum of bytes 0..3 masked to 8 bits. The reading is computed
// and returned even if the checksum fails, so it can be logged.
func Parse(f pulse.Frame) (Reading, error) {
	var r Reading
	b := f.Bytes

	if len(b) < FrameBytes {
		return r, pulse.Errorf(pulse.IncompleteFrame, -1, "%d data bytes, want %d", len(b), FrameBytes)
	}

	r.Humidity = float64(uint16(b[0])<<8|uint16(b[1])) / 10
	r.Temperature = float64(uint16(b[2]&0x7F)<<8|uint16(b[3])) / 10
	if b[2]&0x80 != 0 {
		r.Temperature = -r.Temperature
	}

	if sum := Checksum(b[:4]); b[4] != sum {
		return r, pulse.Errorf(pulse.ChecksumMismatch, -1, "0=%02X 1=%02X 2=%02X 3=%02X 4=%02X, sum=%02X",
			b[0], b[1], b[2], b[3], b[4], sum)
	}

	return r, nil
}

// Checksum is the 8 bit sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Check verifies that the values are within the measuring range of the sensor.
func (r Reading) Check() error {
	if r.Humidity < hMin || r.Humidity > hMax {
		return fmt.Errorf("%w: %.1f%%", ErrInvalidHumidity, r.Humidity)
	}
	if r.Temperature < tMin || r.Temperature > tMax {
		return fmt.Errorf("%w: %.1f°C", ErrInvalidTemperature, r.Temperature)
	}
	return nil
}

// MarshalFrame builds the raw symbols a receiver captures for data,
// including the response preamble and the terminal symbol.
func MarshalFrame(data []byte) []pulse.RawSymbol {
	out := make([]pulse.RawSymbol, 0, 3+8*len(data))

	// host start signal read back on the line, then the sensor response
	out = append(out,
		pulse.RawSymbol{Level0: port.Low, Duration0: 2000, Level1: port.High, Duration1: 20},
		pulse.RawSymbol{Level0: port.Low, Duration0: 82, Level1: port.High, Duration1: 82},
	)

	for _, b := range data {
		for bit := 7; bit >= 0; bit-- {
			s := pulse.RawSymbol{Level0: port.Low, Duration0: 50, Level1: port.High, Duration1: 27}
			if b>>bit&1 == 1 {
				s.Duration1 = 70
			}
			out = append(out, s)
		}
	}

	return append(out, pulse.RawSymbol{Level0: port.Low, Duration0: 54, Level1: port.High, Duration1: 0})
}
