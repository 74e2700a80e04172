package server

import (
	"errors"
	"strings"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
)

// isDecodeError reports whether err means the byte stream is malformed
func isDecodeError(err error) bool {
	var de *protocol.DecodeError
	return errors.As(err, &de) || errors.Is(err, protocol.ErrInvalidValue)
}

// errorReply builds the error reply for a request that failed to decode or
// parse. value is the decoded request, or the zero Value when decoding failed.
func errorReply(value protocol.Value, err error) protocol.Value {
	name := commandName(value)

	var ia *command.InvalidArgumentError
	switch {
	case errors.Is(err, command.ErrWrongNumArgs):
		return protocol.NewError("ERR wrong number of arguments for '" + name + "' command")
	case errors.As(err, &ia):
		return protocol.NewError("ERR syntax error")
	case protocol.IsDecodeKind(err, protocol.KindParseInt) && value.Type == protocol.TypeArray:
		return protocol.NewError("ERR value is not an integer or out of range")
	case errors.Is(err, command.ErrInvalidCommand) && name != "":
		return protocol.NewError("ERR unknown command '" + name + "'")
	case errors.Is(err, command.ErrInvalidCommand):
		return protocol.NewError("ERR Protocol error: expected an array of bulk strings")
	default:
		return protocol.NewError("ERR Protocol error: " + sanitize(err.Error()))
	}
}

// commandName returns the lower-cased command name of a request, if any
func commandName(v protocol.Value) string {
	if v.Type != protocol.TypeArray || v.IsNull || len(v.Array) == 0 {
		return ""
	}
	head := v.Array[0]
	if head.Type != protocol.TypeBulkString || head.IsNull {
		return ""
	}
	return sanitize(strings.ToLower(string(head.Data)))
}

// sanitize keeps text safe for a simple error
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r == '\'' {
			return ' '
		}
		return r
	}, s)
}
