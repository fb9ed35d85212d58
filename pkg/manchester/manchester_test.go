package manchester

import (
	"math/rand"
	"testing"

	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func units(levels ...port.Level) []pulse.UnitPulse {
	out := make([]pulse.UnitPulse, len(levels))
	for i, l := range levels {
		out[i] = pulse.UnitPulse{Level: l, Duration: 850}
	}
	return out
}

const (
	L = port.Low
	H = port.High
)

func TestDecode_Normal(t *testing.T) {
	// 1 0 1 1 0 0 1 0
	p := units(L, H, H, L, L, H, L, H, H, L, H, L, L, H, H, L)

	f := Decode(p, false)
	assert.Equal(t, pulse.Frame{Bytes: []byte{0xB2}, BitCount: 8}, f)
}

func TestDecode_Differential(t *testing.T) {
	// transitions are 0, no transition is 1
	p := units(L, H, H, H, H, L, L, L)

	f := Decode(p, true)
	assert.Equal(t, pulse.Frame{Bytes: []byte{0x50}, BitCount: 4}, f)
}

func TestDecode_NormalWithoutTransition(t *testing.T) {
	// no transition is undetermined in normal mode and stays 0
	p := units(L, H, H, H, L, H)

	f := Decode(p, false)
	assert.Equal(t, pulse.Frame{Bytes: []byte{0xA0}, BitCount: 3}, f)
}

func TestDecode_OddPayloadIsPadded(t *testing.T) {
	// the final low pulse of the last bit merged into the idle line
	p := units(L, H, H, L, H)

	f := Decode(p, false)
	assert.Equal(t, 3, f.BitCount)
	assert.Equal(t, []byte{0x80}, f.Bytes)

	f = Decode(p, true)
	assert.Equal(t, 3, f.BitCount)
	assert.Equal(t, []byte{0x00}, f.Bytes)
}

func TestDecode_Empty(t *testing.T) {
	f := Decode(nil, false)
	assert.Equal(t, 0, f.BitCount)
	assert.Empty(t, f.Bytes)
}

func TestCalibrate(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	jitter := func(d int) uint32 { return uint32(d + rnd.Intn(41) - 20) }

	var symbols []pulse.RawSymbol
	for i := 0; i < 40; i++ {
		d1 := 850
		if i%3 == 0 {
			d1 = 1700
		}
		symbols = append(symbols, pulse.RawSymbol{
			Level0: port.Low, Duration0: jitter(850),
			Level1: port.High, Duration1: jitter(d1),
		})
	}
	// gap at the end of the capture
	symbols = append(symbols, pulse.RawSymbol{Level0: port.Low, Duration0: 20000})

	w, err := Calibrate(symbols)
	require.NoError(t, err)
	assert.InDelta(t, 850, float64(w.Base), 15)
	assert.Less(t, 2*w.Tolerance, w.Base)
	assert.GreaterOrEqual(t, w.Tolerance, uint32(20))
	assert.NoError(t, w.Validate())

	for _, s := range symbols[:40] {
		assert.NotEqual(t, pulse.Invalid, pulse.Classify(s.Duration0, w))
		assert.NotEqual(t, pulse.Invalid, pulse.Classify(s.Duration1, w))
	}
}

func TestCalibrate_NotEnoughSamples(t *testing.T) {
	_, err := Calibrate([]pulse.RawSymbol{{Level0: port.Low, Duration0: 850, Level1: port.High, Duration1: 850}})
	assert.ErrorIs(t, err, ErrNotEnoughSamples)
}
