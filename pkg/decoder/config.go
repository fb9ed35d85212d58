package decoder

import (
	"errors"
	"fmt"
	"strings"

	"pulsedec/pkg/dht"
	"pulsedec/pkg/pulse"
)

var (
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrUnknownPreset   = errors.New("unknown preset")
)

// Encoding selects how payload pulses map to bits.
type Encoding int

const (
	// DHTMarkSpace decodes raw symbol pairs, the length of the high half carries the bit.
	DHTMarkSpace Encoding = iota + 1
	// Manchester decodes unit pulse pairs by transition direction.
	Manchester
	// DiffManchester decodes unit pulse pairs by presence of a transition.
	DiffManchester
	// PulseDistance decodes raw symbol pairs, the length of the space carries the bit.
	PulseDistance
)

var encodingNames = map[Encoding]string{
	DHTMarkSpace:   "dht",
	Manchester:     "manchester",
	DiffManchester: "diff-manchester",
	PulseDistance:  "pulse-distance",
}

func (e Encoding) String() string {
	if s, ok := encodingNames[e]; ok {
		return s
	}
	return fmt.Sprintf("encoding(%d)", int(e))
}

// ParseEncoding converts the config file spelling of an encoding.
func ParseEncoding(s string) (Encoding, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for e, name := range encodingNames {
		if s == name {
			return e, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownEncoding, s)
}

// DefaultMaxSymbols bounds a capture, 128 symbols are sufficient for a standard remote.
const DefaultMaxSymbols = 128

// Config is the static description of one protocol.
type Config struct {
	Name     string
	Encoding Encoding
	// Width is the base pulse width of manchester and pulse distance code.
	Width pulse.WidthSpec
	// DHT holds the windows of the mark-space code.
	DHT dht.Timing
	// Start and Stop are stripped from head and tail of the capture.
	Start pulse.Pattern
	Stop  pulse.Pattern
	// NumDataBits is the expected payload length, 0 disables the check.
	NumDataBits int
	// ExpectedSymbols is the expected capture length, 0 disables the check.
	// Captures of another length are extraneous and not decoded.
	ExpectedSymbols int
	// MaxSymbols bounds the scratch buffer of a Decoder.
	MaxSymbols int
	// Lenient drops pulses of invalid width instead of rejecting the frame.
	Lenient bool
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	switch c.Encoding {
	case DHTMarkSpace:
		for _, w := range []pulse.WidthSpec{c.DHT.Separator, c.DHT.One, c.DHT.Zero} {
			if w.Base == 0 {
				return fmt.Errorf("%s: dht timing is not set", c.Name)
			}
		}
		if c.DHT.One.InThreshold(c.DHT.Zero.Base, 1) || c.DHT.Zero.InThreshold(c.DHT.One.Base, 1) {
			return fmt.Errorf("%s: dht one and zero windows overlap", c.Name)
		}
	case Manchester, DiffManchester, PulseDistance:
		if err := c.Width.Validate(); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	default:
		return fmt.Errorf("%s: %w %d", c.Name, ErrUnknownEncoding, int(c.Encoding))
	}

	if c.MaxSymbols < 0 || c.NumDataBits < 0 || c.ExpectedSymbols < 0 {
		return fmt.Errorf("%s: negative frame length", c.Name)
	}
	if c.ExpectedSymbols > 0 && c.MaxSymbols > 0 && c.ExpectedSymbols > c.MaxSymbols {
		return fmt.Errorf("%s: expected %d symbols exceeds the maximum of %d", c.Name, c.ExpectedSymbols, c.MaxSymbols)
	}
	return nil
}

func (c Config) maxSymbols() int {
	if c.MaxSymbols > 0 {
		return c.MaxSymbols
	}
	return DefaultMaxSymbols
}
