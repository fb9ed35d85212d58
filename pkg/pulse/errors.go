package pulse

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPulseWidth = errors.New("invalid pulse width")
	ErrIncompleteFrame   = errors.New("incomplete frame")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
)

// Kind is the decode error taxonomy.
type Kind int

const (
	InvalidPulseWidth Kind = iota + 1
	IncompleteFrame
	ChecksumMismatch
)

func (k Kind) sentinel() error {
	switch k {
	case InvalidPulseWidth:
		return ErrInvalidPulseWidth
	case IncompleteFrame:
		return ErrIncompleteFrame
	case ChecksumMismatch:
		return ErrChecksumMismatch
	}
	return errors.New("unknown decode error")
}

func (k Kind) String() string {
	return k.sentinel().Error()
}

// DecodeError is returned for any frame that could not be decoded or validated.
// Index is the raw symbol index the error refers to, or -1.
type DecodeError struct {
	Kind   Kind
	Index  int
	Detail string
}

// Errorf builds a DecodeError with a formatted detail message.
func Errorf(kind Kind, index int, format string, a ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Index: index, Detail: fmt.Sprintf(format, a...)}
}

func (e *DecodeError) Error() string {
	msg := e.Kind.String()
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s at symbol %d", msg, e.Index)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap makes errors.Is work against the package sentinels.
func (e *DecodeError) Unwrap() error {
	return e.Kind.sentinel()
}
