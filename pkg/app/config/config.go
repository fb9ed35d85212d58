package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"

	"pulsedec/pkg/capture"
	"pulsedec/pkg/decoder"
	"pulsedec/pkg/dht"
	"pulsedec/pkg/port"
	"pulsedec/pkg/pulse"
	"pulsedec/pkg/raspberry"
)

var (
	ErrNoProtocol       = errors.New("neither preset nor protocol configured")
	ErrInvalidThreshold = errors.New("threshold must be less than half the pulse width")
)

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Flag     FlagConfig      `yaml:"-"`
	Debug    DebugConfig     `yaml:"debug"`
	Gpio     GpioConfig      `yaml:"gpio"`
	Channels []ChannelConfig `yaml:"channels"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Debug      string
	ConfigFile string
}

// GpioConfig selects how the receiver lines are accessed.
type GpioConfig struct {
	// Backend is gpiod (character device) or gpiomem (memory mapped registers).
	Backend string `yaml:"backend"`
	// Chip is the name of the gpio character device.
	Chip string `yaml:"chip"`
}

// ChannelConfig defines one receiver line and the protocol decoded on it.
type ChannelConfig struct {
	Name          string        `yaml:"name"`
	Gpio          int           `yaml:"gpio"`
	Terminator    string        `yaml:"terminator"`
	BounceTimeInt int           `yaml:"bouncetime"`
	BounceTime    time.Duration `yaml:"-"`
	// IdleInt is the gap in µs that ends a capture.
	IdleInt int           `yaml:"idle"`
	Idle    time.Duration `yaml:"-"`
	// GlitchInt is the shortest accepted pulse in µs.
	GlitchInt  int           `yaml:"glitch"`
	Glitch     time.Duration `yaml:"-"`
	MaxSymbols int           `yaml:"maxsymbols"`

	Preset   string          `yaml:"preset"`
	Protocol *ProtocolConfig `yaml:"protocol"`
}

// ProtocolConfig describes a protocol that has no preset.
type ProtocolConfig struct {
	Encoding   string          `yaml:"encoding"`
	PulseWidth uint32          `yaml:"pulsewidth"`
	Threshold  uint32          `yaml:"threshold"`
	Start      []PatternConfig `yaml:"start"`
	Stop       []PatternConfig `yaml:"stop"`
	DataBits   int             `yaml:"databits"`
	Symbols    int             `yaml:"symbols"`
	Lenient    bool            `yaml:"lenient"`
}

// PatternConfig is one pulse of a start or stop pattern.
type PatternConfig struct {
	Level string `yaml:"level"`
	Width uint32 `yaml:"width"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Flag: FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Gpio: GpioConfig{
			Backend: raspberry.Gpiod,
			Chip:    "gpiochip0",
		},
	}
}

// defaultChannel holds the defaults of fields missing in a channel section.
func defaultChannel() ChannelConfig {
	return ChannelConfig{
		Terminator: "pullup",
		IdleInt:    int(capture.DefaultIdle / time.Microsecond),
	}
}

// UnmarshalYAML seeds a channel with the defaults before the file is decoded.
func (c *ChannelConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain ChannelConfig
	ch := plain(defaultChannel())
	if err := unmarshal(&ch); err != nil {
		return err
	}
	*c = ChannelConfig(ch)
	return nil
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.SetDebugConfig(); err != nil {
		return fmt.Errorf("invalid debug config %q: %w", c.Debug.FileString, err)
	}

	return c.setChannelConfig()
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	return c.Read(file)
}

// Read decodes a yaml configuration into c.
func (c *Config) Read(r io.Reader) error {
	d := yaml.NewDecoder(r)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// SetDebugConfig resolves the log level and opens the log destination.
// A log file opened by an earlier call is closed.
func (c *Config) SetDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	case "error":
		c.Debug.Flag = debug.Error | debug.Fatal
	case "fatal":
		c.Debug.Flag = debug.Fatal
	default:
		return fmt.Errorf("unknown log level %q", c.Debug.FlagString)
	}

	if f := c.Debug.File; f != nil && f != os.Stderr && f != os.Stdout {
		c.Debug.File = nil
		if err = f.Close(); err != nil {
			return
		}
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		var f *os.File
		if f, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
		c.Debug.File = f
	}

	return
}

// setChannelConfig converts the time fields and checks the protocol of every channel.
func (c *Config) setChannelConfig() error {
	names := map[string]bool{}

	for i := range c.Channels {
		ch := &c.Channels[i]
		if ch.Name == "" {
			ch.Name = fmt.Sprintf("gpio%d", ch.Gpio)
		}
		if names[ch.Name] {
			return fmt.Errorf("duplicate channel %q", ch.Name)
		}
		names[ch.Name] = true

		ch.BounceTime = time.Duration(ch.BounceTimeInt) * time.Millisecond
		ch.Idle = time.Duration(ch.IdleInt) * time.Microsecond
		ch.Glitch = time.Duration(ch.GlitchInt) * time.Microsecond

		cfg, err := ch.Decoder()
		if err != nil {
			return fmt.Errorf("channel %q: %w", ch.Name, err)
		}
		// without maxsymbols the bound of the protocol applies to the capture too
		if ch.MaxSymbols == 0 {
			ch.MaxSymbols = cfg.MaxSymbols
		}
	}

	return nil
}

// Capture returns the receiver timing of the channel.
func (c ChannelConfig) Capture() capture.Config {
	return capture.Config{
		Idle:       c.Idle,
		Glitch:     c.Glitch,
		MaxSymbols: c.MaxSymbols,
	}
}

// Decoder builds the protocol configuration of the channel, either from a
// preset or from the protocol section.
func (c ChannelConfig) Decoder() (decoder.Config, error) {
	var cfg decoder.Config

	switch {
	case c.Preset != "":
		p, err := decoder.Preset(c.Preset)
		if err != nil {
			return cfg, err
		}
		cfg = p
	case c.Protocol != nil:
		p, err := c.Protocol.decoder()
		if err != nil {
			return cfg, err
		}
		cfg = p
		cfg.Name = c.Name
	default:
		return cfg, ErrNoProtocol
	}

	if c.MaxSymbols > 0 {
		cfg.MaxSymbols = c.MaxSymbols
	}

	return cfg, cfg.Validate()
}

func (p ProtocolConfig) decoder() (decoder.Config, error) {
	var cfg decoder.Config
	var err error

	if cfg.Encoding, err = decoder.ParseEncoding(p.Encoding); err != nil {
		return cfg, err
	}

	if cfg.Encoding == decoder.DHTMarkSpace {
		cfg.DHT = dht.DefaultTiming
	} else {
		if p.Threshold*2 >= p.PulseWidth {
			return cfg, fmt.Errorf("%w: pulsewidth %d, threshold %d", ErrInvalidThreshold, p.PulseWidth, p.Threshold)
		}
		cfg.Width = pulse.WidthSpec{Base: p.PulseWidth, Tolerance: p.Threshold}
	}

	if cfg.Start, err = pattern(p.Start); err != nil {
		return cfg, fmt.Errorf("start: %w", err)
	}
	if cfg.Stop, err = pattern(p.Stop); err != nil {
		return cfg, fmt.Errorf("stop: %w", err)
	}

	cfg.NumDataBits = p.DataBits
	cfg.ExpectedSymbols = p.Symbols
	cfg.Lenient = p.Lenient
	return cfg, nil
}

func pattern(entries []PatternConfig) (pulse.Pattern, error) {
	var p pulse.Pattern

	for _, e := range entries {
		l, err := port.ParseLevel(e.Level)
		if err != nil {
			return nil, err
		}
		w := e.Width
		if w == 0 {
			w = 1
		}
		p = append(p, pulse.PatternEntry{Level: l, Width: w})
	}

	return p, nil
}
