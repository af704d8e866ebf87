package tlv

import (
	"errors"
	"fmt"
)

// Parse failures.
var (
	ErrBadLength  = errors.New("tlv: length field is not hex")
	ErrTruncated  = errors.New("tlv: record truncated")
	ErrUnknownTag = errors.New("tlv: no registered tag matches")
	ErrBadValue   = errors.New("tlv: value is not hex")
)

// Build failures.
var (
	ErrOddLength       = errors.New("tlv: value has an odd number of hex digits")
	ErrPayloadTooLarge = errors.New("tlv: payload too large")
)

// ErrUnknownOperation is returned when a registry has no entry for a name or tag.
var ErrUnknownOperation = errors.New("tlv: unknown operation")

// ParseError reports where a stream stopped making sense.
// Offset is counted in bytes from the start of the stream.
type ParseError struct {
	Err     error
	Offset  int
	Tag     Tag
	HasTag  bool
	Length  int
	Context string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%v at byte %d", e.Err, e.Offset)
	if e.HasTag {
		msg += fmt.Sprintf(" (tag %s, length %d)", e.Tag.Hex(), e.Length)
	}
	if e.Context != "" {
		msg += fmt.Sprintf(" near %s", e.Context)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// BuildError reports a record that cannot be encoded.
type BuildError struct {
	Err    error
	Tag    Tag
	Length int // value length in hex digits, or bytes for payloads
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%v (tag %s, length %d)", e.Err, e.Tag.Hex(), e.Length)
}

func (e *BuildError) Unwrap() error { return e.Err }
