package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ErrInvalidValue is returned when a Value cannot be represented on the wire
var ErrInvalidValue = errors.New("invalid value")

// Encode returns the wire representation of v
func Encode(v Value) ([]byte, error) {
	return AppendValue(nil, v)
}

// AppendValue appends the wire representation of v to dst
func AppendValue(dst []byte, v Value) ([]byte, error) {
	switch v.Type {
	case TypeSimpleString, TypeError:
		if bytes.ContainsAny(v.Data, "\r\n") {
			return dst, fmt.Errorf("%w: %s contains CR or LF", ErrInvalidValue, v.Type)
		}
		dst = append(dst, byte(v.Type))
		dst = append(dst, v.Data...)
		return append(dst, CRLF...), nil

	case TypeInteger:
		dst = append(dst, byte(TypeInteger))
		dst = strconv.AppendInt(dst, v.Integer, 10)
		return append(dst, CRLF...), nil

	case TypeBulkString:
		if v.IsNull {
			return append(dst, "$-1\r\n"...), nil
		}
		dst = append(dst, byte(TypeBulkString))
		dst = strconv.AppendInt(dst, int64(len(v.Data)), 10)
		dst = append(dst, CRLF...)
		dst = append(dst, v.Data...)
		return append(dst, CRLF...), nil

	case TypeArray:
		if v.IsNull {
			return append(dst, "*-1\r\n"...), nil
		}
		dst = append(dst, byte(TypeArray))
		dst = strconv.AppendInt(dst, int64(len(v.Array)), 10)
		dst = append(dst, CRLF...)
		var err error
		for _, item := range v.Array {
			if dst, err = AppendValue(dst, item); err != nil {
				return dst, err
			}
		}
		return dst, nil

	default:
		return dst, fmt.Errorf("%w: unsupported value type %c", ErrInvalidValue, v.Type)
	}
}

// Decode decodes one value from the start of buf and returns it together with
// the number of bytes consumed. Trailing bytes after the first frame are left
// untouched so pipelined frames can be decoded by calling Decode again on
// buf[n:].
//
// ErrIncomplete is returned when buf ends before the frame does.
func Decode(buf []byte) (Value, int, error) {
	if len(buf) == 0 {
		return Value{}, 0, &DecodeError{Kind: KindEmpty}
	}
	return decodeValue(buf)
}

func decodeValue(buf []byte) (Value, int, error) {
	switch ValueType(buf[0]) {
	case TypeSimpleString, TypeError:
		line, n, err := decodeLine(buf, 1)
		if err != nil {
			return Value{}, 0, err
		}
		if !utf8.Valid(line) {
			return Value{}, 0, &DecodeError{Kind: KindInvalidUTF8}
		}
		return Value{Type: ValueType(buf[0]), Data: clone(line)}, n, nil

	case TypeInteger:
		i, n, err := decodeInt(buf, 1)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Type: TypeInteger, Integer: i}, n, nil

	case TypeBulkString:
		return decodeBulkString(buf)

	case TypeArray:
		return decodeArray(buf)

	default:
		return Value{}, 0, &DecodeError{Kind: KindUnknownType, Byte: buf[0]}
	}
}

func decodeBulkString(buf []byte) (Value, int, error) {
	length, n, err := decodeInt(buf, 1)
	if err != nil {
		return Value{}, 0, err
	}
	if length == -1 {
		return NullBulkString(), n, nil
	}
	if length < 0 || length > maxBulkSize {
		return Value{}, 0, &DecodeError{Kind: KindParseInt, Err: fmt.Errorf("bulk string length %d out of range", length)}
	}

	end := n + int(length)
	if len(buf) < end+2 {
		return Value{}, 0, ErrIncomplete
	}
	if buf[end] != '\r' || buf[end+1] != '\n' {
		actual := int64(-1)
		if idx := bytes.Index(buf[n:], crlfBytes); idx >= 0 {
			actual = int64(idx)
		}
		return Value{}, 0, &DecodeError{Kind: KindLengthMismatch, Given: length, Actual: actual}
	}

	return Value{Type: TypeBulkString, Data: clone(buf[n:end])}, end + 2, nil
}

func decodeArray(buf []byte) (Value, int, error) {
	count, n, err := decodeInt(buf, 1)
	if err != nil {
		return Value{}, 0, err
	}
	if count == -1 {
		return NullArray(), n, nil
	}
	if count < 0 || count > maxArraySize {
		return Value{}, 0, &DecodeError{Kind: KindParseInt, Err: fmt.Errorf("array length %d out of range", count)}
	}

	// The header alone does not prove the elements exist
	values := make([]Value, 0, min(count, 64))
	for i := int64(0); i < count; i++ {
		if n >= len(buf) {
			return Value{}, 0, ErrIncomplete
		}
		item, used, err := decodeValue(buf[n:])
		if err != nil {
			return Value{}, 0, err
		}
		values = append(values, item)
		n += used
	}

	return Value{Type: TypeArray, Array: values}, n, nil
}

// decodeLine returns the bytes between start and the next CRLF, and the
// offset just past the CRLF
func decodeLine(buf []byte, start int) ([]byte, int, error) {
	idx := bytes.IndexByte(buf[start:], '\n')
	if idx < 0 {
		return nil, 0, ErrIncomplete
	}
	end := start + idx
	if end == start || buf[end-1] != '\r' {
		return nil, 0, &DecodeError{Kind: KindInvalidFormat}
	}
	return buf[start : end-1], end + 1, nil
}

func decodeInt(buf []byte, start int) (int64, int, error) {
	line, n, err := decodeLine(buf, start)
	if err != nil {
		return 0, 0, err
	}
	i, err := parseInt64(line)
	if err != nil {
		return 0, 0, &DecodeError{Kind: KindParseInt, Err: fmt.Errorf("%q: %w", line, err)}
	}
	return i, n, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
