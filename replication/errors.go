package replication

import (
	"errors"
	"fmt"
)

var (
	// ErrCannotConnectMaster indicates the master could not be reached or
	// did not answer PING with PONG
	ErrCannotConnectMaster = errors.New("cannot connect to master")

	// ErrUnexpectedReply indicates the master answered a handshake step
	// with something other than the expected acknowledgement
	ErrUnexpectedReply = errors.New("unexpected reply from master")

	// ErrHandshakeDone indicates Handshake was called more than once
	ErrHandshakeDone = errors.New("handshake already attempted")
)

// HandshakeError reports the handshake state in which a failure occurred
type HandshakeError struct {
	State State
	Err   error
}

// Error implements the error interface
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("replication handshake failed in state %s: %v", e.State, e.Err)
}

// Unwrap returns the wrapped error
func (e *HandshakeError) Unwrap() error {
	return e.Err
}
