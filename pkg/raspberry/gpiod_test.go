//go:build linux

package raspberry

import (
	"sync/atomic"
	"testing"
	"time"

	"pulsedec/pkg/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/gpiod"
)

func TestEventHandler(t *testing.T) {
	var ready atomic.Bool
	l := newLine(0)
	handler := eventHandler(l, &ready)

	// the line is still being requested, the edge is dropped
	handler(gpiod.LineEvent{Timestamp: time.Millisecond, Type: gpiod.LineEventFallingEdge})
	select {
	case evt := <-l.C:
		t.Errorf("unexpected event %v", evt)
	default:
	}

	ready.Store(true)

	go handler(gpiod.LineEvent{Timestamp: 2 * time.Millisecond, Type: gpiod.LineEventFallingEdge})
	assert.Equal(t, port.Event{Timestamp: 2 * time.Millisecond, Type: port.FallingEdge}, receive(t, l))

	go handler(gpiod.LineEvent{Timestamp: 3 * time.Millisecond, Type: gpiod.LineEventRisingEdge})
	assert.Equal(t, port.Event{Timestamp: 3 * time.Millisecond, Type: port.RisingEdge}, receive(t, l))

	require.NoError(t, l.Close())
}

func TestEventHandler_DebounceBeforeReady(t *testing.T) {
	var ready atomic.Bool
	l := newLine(time.Millisecond)
	handler := eventHandler(l, &ready)

	// read is not set yet, a debounce run would call a nil function
	handler(gpiod.LineEvent{Timestamp: time.Millisecond, Type: gpiod.LineEventRisingEdge})
	assert.False(t, l.debouncing.Load())

	require.NoError(t, l.Close())
}
