package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pulsedec/pkg/decoder"
	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
debug:
  file: stdout
  flag: debug
gpio:
  chip: gpiochip4
channels:
  - name: climate
    gpio: 4
    preset: dht22
    idle: 5000
  - name: amplifier
    gpio: 17
    terminator: none
    bouncetime: 1
    glitch: 100
    protocol:
      encoding: diff-manchester
      pulsewidth: 889
      threshold: 100
      start:
        - {level: low}
        - {level: high}
        - {level: either, width: 2}
      databits: 12
      lenient: true
`

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pulsedec.yaml")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o600))

	c := NewConfig()
	c.Flag.ConfigFile = file
	require.NoError(t, c.LoadConfig())

	assert.Equal(t, os.Stdout, c.Debug.File)
	assert.Equal(t, "gpiochip4", c.Gpio.Chip)
	assert.Equal(t, "gpiod", c.Gpio.Backend)
	require.Len(t, c.Channels, 2)

	climate := c.Channels[0]
	assert.Equal(t, "pullup", climate.Terminator)
	assert.Equal(t, 5*time.Millisecond, climate.Idle)
	assert.Equal(t, 64, climate.Capture().MaxSymbols)

	cfg, err := climate.Decoder()
	require.NoError(t, err)
	assert.Equal(t, "dht22", cfg.Name)
	assert.Equal(t, decoder.DHTMarkSpace, cfg.Encoding)
	assert.Equal(t, 64, cfg.MaxSymbols)

	amp := c.Channels[1]
	assert.Equal(t, "none", amp.Terminator)
	assert.Equal(t, time.Millisecond, amp.BounceTime)
	assert.Equal(t, 100*time.Microsecond, amp.Glitch)
	assert.Equal(t, 10*time.Millisecond, amp.Idle)

	cfg, err = amp.Decoder()
	require.NoError(t, err)
	assert.Equal(t, "amplifier", cfg.Name)
	assert.Equal(t, decoder.DiffManchester, cfg.Encoding)
	assert.Equal(t, pulse.WidthSpec{Base: 889, Tolerance: 100}, cfg.Width)
	assert.Equal(t, pulse.Pattern{
		{Level: port.Low, Width: 1},
		{Level: port.High, Width: 1},
		{Level: port.Either, Width: 2},
	}, cfg.Start)
	assert.Empty(t, cfg.Stop)
	assert.Equal(t, 12, cfg.NumDataBits)
	assert.True(t, cfg.Lenient)
}

func TestLoadConfig_FlagOverridesLogLevel(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pulsedec.yaml")
	require.NoError(t, os.WriteFile(file, []byte("debug:\n  file: stderr\n  flag: standard\n"), 0o600))

	c := NewConfig()
	c.Flag.ConfigFile = file
	c.Flag.Debug = "trace"
	require.NoError(t, c.LoadConfig())
	assert.Equal(t, "trace", c.Debug.FlagString)
	assert.Empty(t, c.Channels)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.True(t, errors.Is(c.LoadConfig(), os.ErrNotExist))
}

func TestChannelConfig_Decoder(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "no protocol",
			yaml: "channels: [{name: a, gpio: 1}]",
			want: ErrNoProtocol,
		},
		{
			name: "unknown preset",
			yaml: "channels: [{name: a, preset: rc5}]",
			want: decoder.ErrUnknownPreset,
		},
		{
			name: "unknown encoding",
			yaml: "channels: [{name: a, protocol: {encoding: pulse-width, pulsewidth: 500, threshold: 50}}]",
			want: decoder.ErrUnknownEncoding,
		},
		{
			name: "threshold too wide",
			yaml: "channels: [{name: a, protocol: {encoding: manchester, pulsewidth: 500, threshold: 250}}]",
			want: ErrInvalidThreshold,
		},
		{
			name: "unknown level",
			yaml: "channels: [{name: a, protocol: {encoding: manchester, pulsewidth: 500, threshold: 50, start: [{level: tristate}]}}]",
			want: port.ErrUnknownLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			require.NoError(t, c.Read(strings.NewReader(tt.yaml)))
			err := c.setChannelConfig()
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestChannelConfig_DuplicateName(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Read(strings.NewReader("channels: [{gpio: 4, preset: dht22}, {gpio: 4, preset: lg-tv}]")))
	assert.Error(t, c.setChannelConfig())
}

func TestChannelConfig_CustomDHT(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Read(strings.NewReader("channels: [{gpio: 4, maxsymbols: 50, protocol: {encoding: dht, symbols: 43, databits: 40, start: [{level: low}, {level: high}, {level: low}, {level: high}], stop: [{level: low}]}}]")))
	require.NoError(t, c.setChannelConfig())

	cfg, err := c.Channels[0].Decoder()
	require.NoError(t, err)
	assert.Equal(t, "gpio4", cfg.Name)
	assert.Equal(t, decoder.DHT22().DHT, cfg.DHT)
	assert.Equal(t, 50, cfg.MaxSymbols)
	assert.Equal(t, 43, cfg.ExpectedSymbols)
}

func TestChannelConfig_MaxSymbols(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Read(strings.NewReader("channels: [{name: a, preset: dht22}, {name: b, preset: dht22, maxsymbols: 50}, {name: c, preset: lg-tv}]")))
	require.NoError(t, c.setChannelConfig())

	tests := []struct {
		name    string
		capture int
		decoder int
	}{
		{name: "a", capture: 64, decoder: 64},
		{name: "b", capture: 50, decoder: 50},
		// no bound at all, the capture falls back to its default
		{name: "c", capture: 0, decoder: 0},
	}

	for i, tt := range tests {
		ch := c.Channels[i]
		assert.Equal(t, tt.name, ch.Name)
		assert.Equal(t, tt.capture, ch.Capture().MaxSymbols, tt.name)

		cfg, err := ch.Decoder()
		require.NoError(t, err)
		assert.Equal(t, tt.decoder, cfg.MaxSymbols, tt.name)
	}
}

func TestSetDebugConfig_ClosesLogFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pulsedec.yaml")
	logFile := filepath.Join(dir, "pulsedec.log")
	require.NoError(t, os.WriteFile(file, []byte("debug:\n  file: "+logFile+"\n  flag: standard\n"), 0o600))

	c := NewConfig()
	c.Flag.ConfigFile = file
	require.NoError(t, c.LoadConfig())

	first, ok := c.Debug.File.(*os.File)
	require.True(t, ok)
	assert.Equal(t, logFile, first.Name())

	c.Debug.FileString = "stderr"
	require.NoError(t, c.SetDebugConfig())
	assert.Equal(t, os.Stderr, c.Debug.File)

	_, err := first.WriteString("leaked")
	assert.True(t, errors.Is(err, os.ErrClosed), "got %v", err)
}
