package replication_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/replication"
)

// fakeMaster answers each received command with the next scripted reply.
// When the script runs out the connection is closed.
type fakeMaster struct {
	ln      net.Listener
	replies []protocol.Value

	mu       sync.Mutex
	received []string
	done     chan struct{}
}

func newFakeMaster(t *testing.T, replies ...protocol.Value) *fakeMaster {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	m := &fakeMaster{ln: ln, replies: replies, done: make(chan struct{})}
	go m.serve()
	t.Cleanup(func() { ln.Close() })
	return m
}

func (m *fakeMaster) serve() {
	defer close(m.done)
	conn, err := m.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := protocol.NewReader(conn)
	w := protocol.NewWriter(conn)
	for _, reply := range m.replies {
		req, err := r.ReadNext()
		if err != nil {
			return
		}
		cmd, err := command.FromValue(req)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.received = append(m.received, command.String(cmd))
		m.mu.Unlock()

		if err := w.WriteValue(reply); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

func (m *fakeMaster) Addr() string { return m.ln.Addr().String() }

func (m *fakeMaster) Received(t *testing.T) []string {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("fake master did not finish")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.received...)
}

func TestHandshakeSuccess(t *testing.T) {
	master := newFakeMaster(t,
		protocol.NewSimpleString("PONG"),
		protocol.NewSimpleString("OK"),
		protocol.NewSimpleString("OK"),
	)

	client := replication.NewClient(master.Addr(), 6380)
	defer client.Close()

	if err := client.Handshake(context.Background()); err != nil {
		t.Fatalf("Handshake() error = %v", err)
	}
	if got := client.State(); got != replication.StateHandshakeComplete {
		t.Errorf("State() = %s, want handshake-complete", got)
	}

	client.Close()
	want := []string{"PING", "REPLCONF listening-port 6380", "REPLCONF capa psync2"}
	got := master.Received(t)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("master received %q, want %q", got, want)
	}

	if err := client.Handshake(context.Background()); !errors.Is(err, replication.ErrHandshakeDone) {
		t.Errorf("second Handshake() error = %v, want ErrHandshakeDone", err)
	}
}

func TestHandshakeFailures(t *testing.T) {
	tests := []struct {
		name      string
		replies   []protocol.Value
		wantState replication.State
		wantErr   error
		wantSent  int
	}{
		{
			name:      "ping answered with error",
			replies:   []protocol.Value{protocol.NewError("ERR nope")},
			wantState: replication.StateConnected,
			wantErr:   replication.ErrCannotConnectMaster,
			wantSent:  1,
		},
		{
			name:      "ping answered with bulk PONG",
			replies:   []protocol.Value{protocol.NewBulkStringFromString("PONG")},
			wantState: replication.StateConnected,
			wantErr:   replication.ErrCannotConnectMaster,
			wantSent:  1,
		},
		{
			name: "listening-port rejected",
			replies: []protocol.Value{
				protocol.NewSimpleString("PONG"),
				protocol.NewError("ERR denied"),
			},
			wantState: replication.StatePongReceived,
			wantErr:   replication.ErrUnexpectedReply,
			wantSent:  2,
		},
		{
			name: "capabilities rejected",
			replies: []protocol.Value{
				protocol.NewSimpleString("PONG"),
				protocol.NewSimpleString("OK"),
				protocol.NewSimpleString("NO"),
			},
			wantState: replication.StateListeningPortAcked,
			wantErr:   replication.ErrUnexpectedReply,
			wantSent:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			master := newFakeMaster(t, tt.replies...)
			client := replication.NewClient(master.Addr(), 6380)
			defer client.Close()

			err := client.Handshake(context.Background())
			var hsErr *replication.HandshakeError
			if !errors.As(err, &hsErr) {
				t.Fatalf("Handshake() error = %v, want *HandshakeError", err)
			}
			if hsErr.State != tt.wantState {
				t.Errorf("HandshakeError.State = %s, want %s", hsErr.State, tt.wantState)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Handshake() error = %v, want %v", err, tt.wantErr)
			}
			if got := client.State(); got != replication.StateFailed {
				t.Errorf("State() = %s, want failed", got)
			}

			// The client closes the connection on failure, so nothing
			// after the failing step reaches the master.
			if got := master.Received(t); len(got) != tt.wantSent {
				t.Errorf("master received %q, want %d commands", got, tt.wantSent)
			}
		})
	}
}

func TestHandshakeFragmentedReplies(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// The master answers each command one byte at a time
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := protocol.NewReader(conn)
		for _, reply := range []string{"+PONG\r\n", "+OK\r\n", "+OK\r\n"} {
			if _, err := r.ReadNext(); err != nil {
				return
			}
			for i := range reply {
				if _, err := conn.Write([]byte{reply[i]}); err != nil {
					return
				}
				time.Sleep(time.Millisecond)
			}
		}
		// Hold the connection until the client closes it
		_, _ = r.ReadNext()
	}()

	client := replication.NewClient(ln.Addr().String(), 6380)
	defer client.Close()

	if err := client.Handshake(context.Background()); err != nil {
		t.Fatalf("Handshake() error = %v", err)
	}
	if got := client.State(); got != replication.StateHandshakeComplete {
		t.Errorf("State() = %s, want handshake-complete", got)
	}
}

func TestHandshakeMasterClosesConnection(t *testing.T) {
	master := newFakeMaster(t, protocol.NewSimpleString("PONG"))
	client := replication.NewClient(master.Addr(), 6380)
	defer client.Close()

	err := client.Handshake(context.Background())
	var hsErr *replication.HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("Handshake() error = %v, want *HandshakeError", err)
	}
	if hsErr.State != replication.StatePongReceived {
		t.Errorf("HandshakeError.State = %s, want pong-received", hsErr.State)
	}
}

func TestHandshakeUnreachableMaster(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := replication.NewClient(addr, 6380)
	err = client.Handshake(context.Background())
	if !errors.Is(err, replication.ErrCannotConnectMaster) {
		t.Fatalf("Handshake() error = %v, want ErrCannotConnectMaster", err)
	}
	var hsErr *replication.HandshakeError
	if errors.As(err, &hsErr) && hsErr.State != replication.StateDisconnected {
		t.Errorf("HandshakeError.State = %s, want disconnected", hsErr.State)
	}
}

func TestHandshakeContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// Accept but never answer
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 512)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := replication.NewClient(ln.Addr().String(), 6380)
	err = client.Handshake(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Handshake() error = %v, want deadline exceeded", err)
	}
}

func TestNewMasterConfig(t *testing.T) {
	cfg, err := replication.NewMasterConfig()
	if err != nil {
		t.Fatalf("NewMasterConfig() error = %v", err)
	}
	if !cfg.IsMaster() || cfg.Role.String() != "master" {
		t.Errorf("Role = %s, want master", cfg.Role)
	}
	if len(cfg.ReplID) != replication.ReplIDLength {
		t.Errorf("len(ReplID) = %d, want 40", len(cfg.ReplID))
	}
	for _, r := range cfg.ReplID {
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9') {
			t.Fatalf("ReplID %q contains %q", cfg.ReplID, r)
		}
	}
	if cfg.ReplOffset != 0 {
		t.Errorf("ReplOffset = %d, want 0", cfg.ReplOffset)
	}

	other, _ := replication.NewMasterConfig()
	if other.ReplID == cfg.ReplID {
		t.Error("two generated replication ids are equal")
	}

	replica := replication.NewReplicaConfig("localhost:6379")
	if replica.IsMaster() || replica.Role.String() != "slave" || replica.MasterAddr != "localhost:6379" {
		t.Errorf("NewReplicaConfig() = %+v", replica)
	}
}
