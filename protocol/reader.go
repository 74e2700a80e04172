package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"
)

const (
	// CRLF is the RESP line terminator
	CRLF = "\r\n"

	// maxBulkSize is the maximum size for bulk strings (512MB)
	maxBulkSize = 512 * 1024 * 1024

	// maxArraySize is the maximum size for arrays
	maxArraySize = 1024 * 1024
)

var (
	crlfBytes = []byte(CRLF)
)

// Reader is a streaming RESP reader over an io.Reader. Unlike Decode it
// blocks until a whole value has arrived.
type Reader struct {
	br *bufio.Reader
}

// NewReader creates a new streaming RESP reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		br: bufio.NewReader(r),
	}
}

// ReadNext reads the next RESP value from the stream
func (r *Reader) ReadNext() (Value, error) {
	typeByte, err := r.br.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch ValueType(typeByte) {
	case TypeSimpleString, TypeError:
		line, err := r.readLine()
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(line) {
			return Value{}, &DecodeError{Kind: KindInvalidUTF8}
		}
		return Value{Type: ValueType(typeByte), Data: line}, nil
	case TypeInteger:
		n, err := r.readInt()
		if err != nil {
			return Value{}, err
		}
		return NewInteger(n), nil
	case TypeBulkString:
		return r.readBulkString()
	case TypeArray:
		return r.readArray()
	default:
		return Value{}, &DecodeError{Kind: KindUnknownType, Byte: typeByte}
	}
}

// parseInt64 parses an int64 from a byte slice without allocation
func parseInt64(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, strconv.ErrSyntax
	}

	var neg bool
	var i int

	switch b[0] {
	case '-':
		neg = true
		i = 1
	case '+':
		i = 1
	default:
		i = 0
	}

	if i >= len(b) {
		return 0, strconv.ErrSyntax
	}

	// Magnitude limit, one larger on the negative side for MinInt64
	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}

	var n uint64
	for ; i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			return 0, strconv.ErrSyntax
		}

		d := uint64(b[i] - '0')
		if n > (limit-d)/10 {
			return 0, strconv.ErrRange
		}
		n = n*10 + d
	}

	if neg {
		return int64(-n), nil
	}
	return int64(n), nil
}

func (r *Reader) readInt() (int64, error) {
	line, err := r.readLine()
	if err != nil {
		return 0, err
	}
	n, err := parseInt64(line)
	if err != nil {
		return 0, &DecodeError{Kind: KindParseInt, Err: fmt.Errorf("%q: %w", line, err)}
	}
	return n, nil
}

// readBulkString reads a bulk string value
func (r *Reader) readBulkString() (Value, error) {
	length, err := r.readInt()
	if err != nil {
		return Value{}, err
	}

	if length == -1 {
		return NullBulkString(), nil
	}

	if length < 0 || length > maxBulkSize {
		return Value{}, &DecodeError{Kind: KindParseInt, Err: fmt.Errorf("bulk string length %d out of range", length)}
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r.br, data); err != nil {
		return Value{}, err
	}

	crlf := make([]byte, 2)
	if _, err := io.ReadFull(r.br, crlf); err != nil {
		return Value{}, fmt.Errorf("failed to read CRLF terminator: %w", err)
	}
	if !bytes.Equal(crlf, crlfBytes) {
		return Value{}, &DecodeError{Kind: KindLengthMismatch, Given: length, Actual: -1}
	}

	return Value{Type: TypeBulkString, Data: data}, nil
}

// readArray reads an array value
func (r *Reader) readArray() (Value, error) {
	length, err := r.readInt()
	if err != nil {
		return Value{}, err
	}

	if length == -1 {
		return NullArray(), nil
	}

	if length < 0 || length > maxArraySize {
		return Value{}, &DecodeError{Kind: KindParseInt, Err: fmt.Errorf("array length %d out of range", length)}
	}

	array := make([]Value, length)
	for i := int64(0); i < length; i++ {
		value, err := r.ReadNext()
		if err != nil {
			return Value{}, err
		}
		array[i] = value
	}

	return Value{Type: TypeArray, Array: array}, nil
}

// readLine reads a line terminated by CRLF
func (r *Reader) readLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	if !bytes.HasSuffix(line, crlfBytes) {
		return nil, &DecodeError{Kind: KindInvalidFormat}
	}

	return line[:len(line)-2], nil
}
