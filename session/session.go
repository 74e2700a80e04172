package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
)

// ChunkSize is the size of a single socket read
const ChunkSize = 512

// Session frames RESP values over a connection. Bytes are read in chunks of
// ChunkSize and accumulated until a complete frame is available, so a frame
// split across reads and several frames in one read are both handled.
//
// A Session is owned by a single goroutine.
type Session struct {
	conn    net.Conn
	chunk   [ChunkSize]byte
	pending []byte
	readErr error
	out     []byte
}

// New wraps conn
func New(conn net.Conn) *Session {
	return &Session{conn: conn}
}

// Dial connects to addr and returns a client session
func Dial(ctx context.Context, addr string) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// ReadValue returns the next complete value from the connection. It
// returns io.EOF when the peer closed the connection between frames and
// io.ErrUnexpectedEOF when it closed in the middle of one.
func (s *Session) ReadValue() (protocol.Value, error) {
	for {
		if len(s.pending) > 0 {
			v, n, err := protocol.Decode(s.pending)
			if err == nil {
				s.pending = append(s.pending[:0], s.pending[n:]...)
				return v, nil
			}
			if !errors.Is(err, protocol.ErrIncomplete) {
				return protocol.Value{}, err
			}
		}

		if s.readErr != nil {
			if errors.Is(s.readErr, io.EOF) && len(s.pending) > 0 {
				return protocol.Value{}, io.ErrUnexpectedEOF
			}
			return protocol.Value{}, s.readErr
		}

		n, err := s.conn.Read(s.chunk[:])
		s.pending = append(s.pending, s.chunk[:n]...)
		if err != nil {
			s.readErr = err
		}
	}
}

// ReadCommand reads the next value and parses it as a command
func (s *Session) ReadCommand() (command.Command, error) {
	v, err := s.ReadValue()
	if err != nil {
		return nil, err
	}
	return command.FromValue(v)
}

// WriteValue encodes v and writes the whole frame
func (s *Session) WriteValue(v protocol.Value) error {
	var err error
	s.out, err = protocol.AppendValue(s.out[:0], v)
	if err != nil {
		return err
	}
	_, err = s.conn.Write(s.out)
	return err
}

// Roundtrip sends cmd and reads a single reply
func (s *Session) Roundtrip(cmd command.Command) (protocol.Value, error) {
	if err := s.WriteValue(cmd.Value()); err != nil {
		return protocol.Value{}, err
	}
	return s.ReadValue()
}

// Buffered returns the number of received bytes not yet consumed
func (s *Session) Buffered() int {
	return len(s.pending)
}

// RemoteAddr returns the peer address
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// SetDeadline sets the read and write deadline of the connection
func (s *Session) SetDeadline(t time.Time) error {
	return s.conn.SetDeadline(t)
}

// Close closes the connection
func (s *Session) Close() error {
	return s.conn.Close()
}
