package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raniellyferreira/respkv/protocol"
)

type argParser func(args []protocol.Value) (Command, error)

// commands is the fixed command table, keyed by lower-case name
var commands = map[string]argParser{
	"ping":     parsePing,
	"echo":     parseEcho,
	"set":      parseSet,
	"get":      parseGet,
	"info":     parseInfo,
	"replconf": parseReplConf,
	"eval":     parseEval,
}

// Parse decodes one frame from buf and parses it as a command.
// Bytes after the first frame are ignored.
func Parse(buf []byte) (Command, error) {
	v, _, err := protocol.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	return FromValue(v)
}

// FromValue parses a decoded value into a command. The value must be a
// non-null array whose first element is a bulk string naming the command.
func FromValue(v protocol.Value) (Command, error) {
	if v.Type != protocol.TypeArray || v.IsNull || len(v.Array) == 0 {
		return nil, ErrInvalidCommand
	}

	head := v.Array[0]
	if head.Type != protocol.TypeBulkString || head.IsNull || !utf8.Valid(head.Data) {
		return nil, ErrInvalidCommand
	}

	parse, ok := commands[strings.ToLower(string(head.Data))]
	if !ok {
		return nil, ErrInvalidCommand
	}
	return parse(v.Array[1:])
}

// consumeArgs takes exactly required arguments, then up to optional more.
// Anything left over is an arity error.
func consumeArgs(args []protocol.Value, required, optional int) ([][]byte, error) {
	if len(args) < required || len(args) > required+optional {
		return nil, ErrWrongNumArgs
	}

	out := make([][]byte, len(args))
	for i, arg := range args {
		b, err := bulkBytes(arg)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func bulkBytes(v protocol.Value) ([]byte, error) {
	if v.Type != protocol.TypeBulkString || v.IsNull {
		return nil, invalidArgument(v)
	}
	return v.Data, nil
}

func bulkText(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", invalidArgument(protocol.NewBulkString(b))
	}
	return string(b), nil
}

func parsePing(args []protocol.Value) (Command, error) {
	parts, err := consumeArgs(args, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return &Ping{}, nil
	}
	return &Ping{Message: parts[0]}, nil
}

func parseEcho(args []protocol.Value) (Command, error) {
	parts, err := consumeArgs(args, 1, 0)
	if err != nil {
		return nil, err
	}
	return &Echo{Message: parts[0]}, nil
}

func parseSet(args []protocol.Value) (Command, error) {
	parts, err := consumeArgs(args, 2, 2)
	if err != nil {
		return nil, err
	}

	cmd := &Set{Key: parts[0], Val: parts[1]}
	if len(parts) == 2 {
		return cmd, nil
	}

	keyword, err := bulkText(parts[2])
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(keyword, "px") {
		return nil, invalidArgument(args[2])
	}
	if len(parts) < 4 {
		return nil, ErrWrongNumArgs
	}

	ms, err := strconv.ParseUint(string(parts[3]), 10, 64)
	if err != nil {
		return nil, &protocol.DecodeError{Kind: protocol.KindParseInt, Err: err}
	}
	if ms > uint64(math.MaxInt64/int64(time.Millisecond)) {
		return nil, invalidArgument(args[3])
	}

	cmd.Expiry = time.Duration(ms) * time.Millisecond
	cmd.HasExpiry = true
	return cmd, nil
}

func parseGet(args []protocol.Value) (Command, error) {
	parts, err := consumeArgs(args, 1, 0)
	if err != nil {
		return nil, err
	}
	return &Get{Key: parts[0]}, nil
}

func parseInfo(args []protocol.Value) (Command, error) {
	parts, err := consumeArgs(args, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return &Info{Section: InfoDefault}, nil
	}

	section, err := bulkText(parts[0])
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(section, "replication") {
		return &Info{Section: InfoReplication}, nil
	}
	return &Info{Section: InfoDefault}, nil
}

func parseReplConf(args []protocol.Value) (Command, error) {
	parts, err := consumeArgs(args, 2, 0)
	if err != nil {
		return nil, err
	}

	key, err := bulkText(parts[0])
	if err != nil {
		return nil, err
	}
	value, err := bulkText(parts[1])
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(key) {
	case "listening-port":
		port, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return nil, invalidArgument(args[1])
		}
		return NewListeningPort(uint16(port)), nil
	case "capa":
		return NewCapabilities(value), nil
	default:
		return nil, invalidArgument(args[0])
	}
}

func parseEval(args []protocol.Value) (Command, error) {
	if len(args) < 2 {
		return nil, ErrWrongNumArgs
	}

	parts := make([][]byte, len(args))
	for i, arg := range args {
		b, err := bulkBytes(arg)
		if err != nil {
			return nil, err
		}
		parts[i] = b
	}

	script, err := bulkText(parts[0])
	if err != nil {
		return nil, err
	}
	numKeys, err := strconv.Atoi(string(parts[1]))
	if err != nil || numKeys < 0 {
		return nil, invalidArgument(args[1])
	}
	if numKeys > len(parts)-2 {
		return nil, ErrWrongNumArgs
	}

	return &Eval{
		Script: script,
		Keys:   parts[2 : 2+numKeys],
		Args:   parts[2+numKeys:],
	}, nil
}
