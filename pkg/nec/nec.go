// Package nec decodes NEC style pulse distance code.
//
// A frame is a 9ms leading burst (16 pulse widths), a 4.5ms space (8 pulse
// widths), 32 data bits and a final burst marking the end of the message:
// address, inverted address, command and inverted command, every byte LSB first.
//
//	logical "0"  one pulse width burst followed by one pulse width space
//	logical "1"  one pulse width burst followed by three pulse widths space
//
// The receiver output is inverted, so the burst is captured as the low half
// of a raw symbol and the space as its high half.
package nec

import (
	"errors"

	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"

	"github.com/womat/debug"
)

// FrameBytes is the length of a standard frame that carries complements.
const FrameBytes = 4

// Assemble maps every payload symbol to one bit, LSB first. duration0 is the
// bit separator and must be one pulse width, duration1 is one pulse width
// for a 0 and three for a 1. Faulty symbols are logged and leave their bit 0;
// offset is the index of payload[0] in the capture and only used for logging.
func Assemble(payload []pulse.RawSymbol, offset int, w pulse.WidthSpec) pulse.Frame {
	bw := pulse.NewBitWriter(len(payload), pulse.LSBFirst)

	for i, s := range payload {
		switch {
		case s.Level0 != port.Low || !w.InThreshold(s.Duration0, 1):
			debug.ErrorLog.Printf("error in bit separator [%d] level0=%v duration0=%d", offset+i, s.Level0, s.Duration0)
			bw.Skip()
		case s.Level1 != port.High:
			debug.ErrorLog.Printf("error in data bit [%d] level1=%v duration1=%d", offset+i, s.Level1, s.Duration1)
			bw.Skip()
		case w.InThreshold(s.Duration1, 3):
			bw.Write(true)
		case w.InThreshold(s.Duration1, 1):
			bw.Skip()
		default:
			debug.ErrorLog.Printf("error in low-level data [%d] level1=%v duration1=%d", offset+i, s.Level1, s.Duration1)
			bw.Skip()
		}
	}

	return bw.Frame()
}

// Check verifies the byte pairs of a 4 byte frame: byte0|byte1 and
// byte2|byte3 must both be 0xFF. Frames of other lengths are not checked.
// A failure is advisory, the frame itself is still usable. Both pairs are
// checked, every failing pair is reported.
func Check(f pulse.Frame) error {
	b := f.Bytes
	if len(b) != FrameBytes {
		return nil
	}

	var errs []error
	for i := 0; i < FrameBytes; i += 2 {
		if b[i]|b[i+1] != 0xFF {
			errs = append(errs, pulse.Errorf(pulse.ChecksumMismatch, -1, "data bytes [%d, %d] %02X %02X", i, i+1, b[i], b[i+1]))
		}
	}
	return errors.Join(errs...)
}

// Command is the decoded content of a standard frame.
type Command struct {
	Address byte
	Command byte
}

// Unmarshal extracts address and command from a 4 byte frame.
func Unmarshal(f pulse.Frame) (Command, bool) {
	if len(f.Bytes) != FrameBytes {
		return Command{}, false
	}
	return Command{Address: f.Bytes[0], Command: f.Bytes[2]}, true
}

// MarshalFrame builds the raw symbols a receiver captures for data with base
// pulse width w: leader, one symbol per bit and the terminal burst.
func MarshalFrame(data []byte, w uint32) []pulse.RawSymbol {
	out := make([]pulse.RawSymbol, 0, 2+8*len(data))
	out = append(out, pulse.RawSymbol{Level0: port.Low, Duration0: 16 * w, Level1: port.High, Duration1: 8 * w})

	for _, b := range data {
		for bit := 0; bit < 8; bit++ {
			s := pulse.RawSymbol{Level0: port.Low, Duration0: w, Level1: port.High, Duration1: w}
			if b>>bit&1 == 1 {
				s.Duration1 = 3 * w
			}
			out = append(out, s)
		}
	}

	return append(out, pulse.RawSymbol{Level0: port.Low, Duration0: w, Level1: port.High})
}
