package protocol

import (
	"errors"
	"fmt"
)

// ErrIncomplete is returned by Decode when buf holds only a prefix of a frame.
// The caller should read more bytes and retry with the longer buffer.
var ErrIncomplete = errors.New("incomplete frame")

// DecodeErrorKind classifies decode failures
type DecodeErrorKind int

const (
	// KindEmpty means the input buffer was empty
	KindEmpty DecodeErrorKind = iota
	// KindInvalidFormat means a line was not terminated by CRLF
	KindInvalidFormat
	// KindLengthMismatch means a bulk string payload did not match its declared length
	KindLengthMismatch
	// KindUnknownType means the first byte is not a RESP type token
	KindUnknownType
	// KindParseInt means an integer or length field is not a valid number
	KindParseInt
	// KindInvalidUTF8 means a simple string or error is not valid UTF-8
	KindInvalidUTF8
)

// DecodeError describes malformed wire bytes
type DecodeError struct {
	Kind DecodeErrorKind

	// Byte is the offending type token for KindUnknownType
	Byte byte

	// Given and Actual are the declared and observed lengths for KindLengthMismatch.
	// Actual is -1 when no terminator was found at all.
	Given  int64
	Actual int64

	Err error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	switch e.Kind {
	case KindEmpty:
		return "decode: empty bytes"
	case KindInvalidFormat:
		return "decode: invalid format"
	case KindLengthMismatch:
		return fmt.Sprintf("decode: length mismatch, given %d, actual %d", e.Given, e.Actual)
	case KindUnknownType:
		return fmt.Sprintf("decode: unknown type %q (0x%02x)", e.Byte, e.Byte)
	case KindParseInt:
		return fmt.Sprintf("decode: invalid integer: %v", e.Err)
	case KindInvalidUTF8:
		return "decode: invalid utf-8 text"
	default:
		return "decode: unknown error"
	}
}

// Unwrap returns the wrapped error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeKind reports whether err is a DecodeError of the given kind
func IsDecodeKind(err error, kind DecodeErrorKind) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Kind == kind
}
