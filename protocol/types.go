package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ValueType represents the type of a RESP value
type ValueType byte

const (
	// RESP value types
	TypeSimpleString ValueType = '+'
	TypeError        ValueType = '-'
	TypeInteger      ValueType = ':'
	TypeBulkString   ValueType = '$'
	TypeArray        ValueType = '*'
)

// String returns the name of the value type
func (t ValueType) String() string {
	switch t {
	case TypeSimpleString:
		return "simple string"
	case TypeError:
		return "error"
	case TypeInteger:
		return "integer"
	case TypeBulkString:
		return "bulk string"
	case TypeArray:
		return "array"
	default:
		return fmt.Sprintf("unknown(%q)", byte(t))
	}
}

// Value represents a parsed RESP value.
//
// Data holds the text of simple strings and errors and the payload of bulk
// strings. IsNull marks the null bulk string ($-1) and the null array (*-1),
// which are distinct from their empty counterparts.
type Value struct {
	Type    ValueType
	Data    []byte
	Integer int64
	Array   []Value
	IsNull  bool
}

// NewSimpleString returns a simple string value
func NewSimpleString(s string) Value {
	return Value{Type: TypeSimpleString, Data: []byte(s)}
}

// NewError returns a simple error value
func NewError(msg string) Value {
	return Value{Type: TypeError, Data: []byte(msg)}
}

// NewInteger returns an integer value
func NewInteger(n int64) Value {
	return Value{Type: TypeInteger, Integer: n}
}

// NewBulkString returns a non-null bulk string value. A nil slice yields the
// empty bulk string, not the null one.
func NewBulkString(data []byte) Value {
	if data == nil {
		data = []byte{}
	}
	return Value{Type: TypeBulkString, Data: data}
}

// NewBulkStringFromString returns a bulk string holding s
func NewBulkStringFromString(s string) Value {
	return NewBulkString([]byte(s))
}

// NullBulkString returns the null bulk string
func NullBulkString() Value {
	return Value{Type: TypeBulkString, IsNull: true}
}

// NewArray returns a non-null array value
func NewArray(values ...Value) Value {
	if values == nil {
		values = []Value{}
	}
	return Value{Type: TypeArray, Array: values}
}

// NullArray returns the null array
func NullArray() Value {
	return Value{Type: TypeArray, IsNull: true}
}

// String returns a string representation of the value
func (v Value) String() string {
	switch v.Type {
	case TypeSimpleString, TypeError:
		return string(v.Data)
	case TypeInteger:
		return strconv.FormatInt(v.Integer, 10)
	case TypeBulkString:
		if v.IsNull {
			return "(nil)"
		}
		return string(v.Data)
	case TypeArray:
		if v.IsNull {
			return "(nil)"
		}
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("unknown type %c", v.Type)
	}
}

// IsError returns true if this is an error value
func (v Value) IsError() bool {
	return v.Type == TypeError
}

// Error returns the error message if this is an error value
func (v Value) Error() string {
	if v.Type == TypeError {
		return string(v.Data)
	}
	return ""
}

// IsSimpleString reports whether v is the simple string s
func (v Value) IsSimpleString(s string) bool {
	return v.Type == TypeSimpleString && string(v.Data) == s
}

// Equal reports whether two values are identical, including the
// null/empty distinction for bulk strings and arrays.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeSimpleString, TypeError:
		return bytes.Equal(v.Data, o.Data)
	case TypeInteger:
		return v.Integer == o.Integer
	case TypeBulkString:
		if v.IsNull || o.IsNull {
			return v.IsNull == o.IsNull
		}
		return bytes.Equal(v.Data, o.Data)
	case TypeArray:
		if v.IsNull || o.IsNull {
			return v.IsNull == o.IsNull
		}
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
