package capture

import (
	"testing"
	"time"

	"pulsedec/pkg/decoder"
	"pulsedec/pkg/dht"
	"pulsedec/pkg/nec"
	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edges replays symbols as the edges of a line starting at t0.
func edges(t0 time.Duration, symbols []pulse.RawSymbol) []port.Event {
	var evts []port.Event

	ts := t0
	for _, s := range symbols {
		for _, h := range []struct {
			level    port.Level
			duration uint32
		}{{s.Level0, s.Duration0}, {s.Level1, s.Duration1}} {
			if h.duration == 0 {
				continue
			}
			if len(evts) == 0 {
				evts = append(evts, port.Event{Timestamp: ts, Type: into(h.level)})
			}
			ts += time.Duration(h.duration) * time.Microsecond
			evts = append(evts, port.Event{Timestamp: ts, Type: into(1 - h.level)})
		}
	}
	return evts
}

// into is the edge that starts a pulse of level l.
func into(l port.Level) port.EventType {
	if l == port.Low {
		return port.FallingEdge
	}
	return port.RisingEdge
}

// replay feeds evts to a receiver, closes the line and collects all frames.
func replay(t *testing.T, cfg Config, evts []port.Event) []Frame {
	t.Helper()

	c := make(chan port.Event)
	r := New(c, cfg)
	defer r.Close()

	go func() {
		for _, e := range evts {
			c <- e
		}
		close(c)
	}()

	var frames []Frame
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-r.C:
			if !ok {
				return frames
			}
			frames = append(frames, f)
		case <-timeout:
			t.Fatal("receiver did not stop")
		}
	}
}

func TestReceiver_DHT22(t *testing.T) {
	symbols := dht.MarshalFrame([]byte{0x02, 0x8C, 0x01, 0x5F, 0xEE})

	frames := replay(t, Config{Idle: time.Second}, edges(time.Second, symbols))
	require.Len(t, frames, 1)
	assert.Equal(t, time.Second, frames[0].Start)
	assert.False(t, frames[0].Truncated)
	if diff := cmp.Diff(symbols, frames[0].Symbols); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}

	d, err := decoder.New(decoder.DHT22())
	require.NoError(t, err)
	res, err := d.Decode(frames[0].Symbols)
	require.NoError(t, err)
	assert.Equal(t, dht.Reading{Humidity: 65.2, Temperature: 35.1}, *res.Reading)
}

func TestReceiver_IdleGapSplitsFrames(t *testing.T) {
	first := nec.MarshalFrame([]byte{0x04, 0xFB, 0x02, 0xFD}, 562)
	second := nec.MarshalFrame([]byte{0x04, 0xFB, 0x03, 0xFC}, 562)

	evts := edges(0, first)
	evts = append(evts, edges(evts[len(evts)-1].Timestamp+2*time.Second, second)...)

	frames := replay(t, Config{Idle: time.Second}, evts)
	require.Len(t, frames, 2)
	assert.Empty(t, cmp.Diff(first, frames[0].Symbols))
	assert.Empty(t, cmp.Diff(second, frames[1].Symbols))
}

func TestReceiver_Glitch(t *testing.T) {
	evts := []port.Event{
		{Timestamp: 0, Type: port.FallingEdge},
		{Timestamp: 500 * time.Microsecond, Type: port.RisingEdge},
		{Timestamp: 520 * time.Microsecond, Type: port.FallingEdge},
		{Timestamp: 1000 * time.Microsecond, Type: port.RisingEdge},
		{Timestamp: 1600 * time.Microsecond, Type: port.FallingEdge},
		{Timestamp: 2000 * time.Microsecond, Type: port.RisingEdge},
	}

	frames := replay(t, Config{Idle: time.Second, Glitch: 100 * time.Microsecond}, evts)
	require.Len(t, frames, 1)

	want := []pulse.RawSymbol{
		{Level0: port.Low, Duration0: 1000, Level1: port.High, Duration1: 600},
		{Level0: port.Low, Duration0: 400, Level1: port.High, Duration1: 0},
	}
	assert.Equal(t, want, frames[0].Symbols)
}

func TestReceiver_GlitchAtStartDropsFrame(t *testing.T) {
	evts := []port.Event{
		{Timestamp: 0, Type: port.FallingEdge},
		{Timestamp: 10 * time.Microsecond, Type: port.RisingEdge},
		{Timestamp: 1000 * time.Microsecond, Type: port.FallingEdge},
		{Timestamp: 1500 * time.Microsecond, Type: port.RisingEdge},
	}

	frames := replay(t, Config{Idle: time.Second, Glitch: 100 * time.Microsecond}, evts)
	require.Len(t, frames, 1)
	assert.Equal(t, time.Millisecond, frames[0].Start)
	assert.Equal(t, []pulse.RawSymbol{{Level0: port.Low, Duration0: 500, Level1: port.High}}, frames[0].Symbols)
}

func TestReceiver_Truncate(t *testing.T) {
	long := nec.MarshalFrame([]byte{0x04, 0xFB, 0x02, 0xFD}, 562)
	short := nec.MarshalFrame([]byte{0x04}, 562)

	evts := edges(0, long)
	evts = append(evts, edges(evts[len(evts)-1].Timestamp+2*time.Second, short)...)

	frames := replay(t, Config{Idle: time.Second, MaxSymbols: 16}, evts)
	require.Len(t, frames, 2)

	assert.True(t, frames[0].Truncated)
	assert.Equal(t, long[:16], frames[0].Symbols)

	assert.False(t, frames[1].Truncated)
	assert.Equal(t, short, frames[1].Symbols)
}

func TestReceiver_IdleTimer(t *testing.T) {
	c := make(chan port.Event)
	r := New(c, Config{Idle: 50 * time.Millisecond})
	defer r.Close()

	symbols := nec.MarshalFrame([]byte{0x04, 0xFB, 0x02, 0xFD}, 562)
	for _, e := range edges(0, symbols) {
		c <- e
	}

	// the line is still open, only the idle timer completes the frame
	select {
	case f := <-r.C:
		assert.Equal(t, symbols, f.Symbols)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame after idle timeout")
	}
}

func TestReceiver_Close(t *testing.T) {
	c := make(chan port.Event)
	r := New(c, Config{})

	c <- port.Event{Timestamp: 0, Type: port.FallingEdge}
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, open := <-r.C
	assert.False(t, open)
}

func TestMicros(t *testing.T) {
	assert.Equal(t, uint32(1), micros(0))
	assert.Equal(t, uint32(1), micros(300*time.Nanosecond))
	assert.Equal(t, uint32(562), micros(562*time.Microsecond+400*time.Nanosecond))
	assert.Equal(t, ^uint32(0), micros(2*time.Hour))
}
