package command

import (
	"errors"
	"fmt"

	"github.com/raniellyferreira/respkv/protocol"
)

var (
	// ErrInvalidCommand indicates an unknown command name or a value that is
	// not a non-null array headed by a bulk string
	ErrInvalidCommand = errors.New("invalid command")

	// ErrWrongNumArgs indicates missing or surplus arguments
	ErrWrongNumArgs = errors.New("wrong number of arguments")
)

// InvalidArgumentError carries the argument that could not be accepted
type InvalidArgumentError struct {
	Value protocol.Value
}

// Error implements the error interface
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s %q", e.Value.Type, e.Value.String())
}

func invalidArgument(v protocol.Value) error {
	return &InvalidArgumentError{Value: v}
}

// IsInvalidArgument reports whether err is an InvalidArgumentError
func IsInvalidArgument(err error) bool {
	var ia *InvalidArgumentError
	return errors.As(err, &ia)
}
