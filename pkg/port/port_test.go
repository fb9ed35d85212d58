package port

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]Level{
		"low": Low, "0": Low, " High ": High, "1": High, "either": Either, "X": Either,
	} {
		got, err := ParseLevel(s)
		assert.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := ParseLevel("tristate")
	assert.True(t, errors.Is(err, ErrUnknownLevel))
}

func TestLevel_Matches(t *testing.T) {
	assert.True(t, Low.Matches(Low))
	assert.False(t, Low.Matches(High))
	assert.True(t, Either.Matches(Low))
	assert.True(t, Either.Matches(High))
}

func TestEventType_Before(t *testing.T) {
	assert.Equal(t, Low, RisingEdge.Before())
	assert.Equal(t, High, FallingEdge.Before())
}
