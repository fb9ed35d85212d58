package pulse

import (
	"fmt"
)

// BitOrder selects how bits are packed into bytes.
type BitOrder int

const (
	// MSBFirst fills bit 7 first (DHT22, Manchester remotes).
	MSBFirst BitOrder = iota
	// LSBFirst fills bit 0 first (NEC style remotes).
	LSBFirst
)

// Frame is the decoded payload of one capture.
type Frame struct {
	Bytes    []byte
	BitCount int
}

func (f Frame) String() string {
	return fmt.Sprintf("%d bits % X", f.BitCount, f.Bytes)
}

// BitWriter packs bits into a frame. Bits default to 0, so a writer only
// needs to be told about ones; Skip advances past a zero or unreadable bit.
type BitWriter struct {
	order BitOrder
	frame Frame
}

// NewBitWriter allocates room for bits bits.
func NewBitWriter(bits int, order BitOrder) *BitWriter {
	return &BitWriter{
		order: order,
		frame: Frame{Bytes: make([]byte, (bits+7)/8)},
	}
}

// Write appends one bit.
func (w *BitWriter) Write(one bool) {
	byteIndex := w.frame.BitCount / 8
	if byteIndex >= len(w.frame.Bytes) {
		w.frame.Bytes = append(w.frame.Bytes, 0)
	}

	if one {
		bit := uint(w.frame.BitCount % 8)
		if w.order == MSBFirst {
			bit = 7 - bit
		}
		w.frame.Bytes[byteIndex] |= 1 << bit
	}
	w.frame.BitCount++
}

// Skip appends a 0 bit.
func (w *BitWriter) Skip() {
	w.Write(false)
}

// Frame returns the packed frame.
func (w *BitWriter) Frame() Frame {
	return w.frame
}
