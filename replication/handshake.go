package replication

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/session"
)

// State is a step of the replica side handshake
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StatePongReceived
	StateListeningPortAcked
	StateCapabilitiesAcked
	StateHandshakeComplete
	StateFailed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StatePongReceived:
		return "pong-received"
	case StateListeningPortAcked:
		return "listening-port-acked"
	case StateCapabilitiesAcked:
		return "capabilities-acked"
	case StateHandshakeComplete:
		return "handshake-complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Capability advertised to the master during the handshake
const Capability = "psync2"

// Logger interface for replication logging
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// MetricsCollector interface for replication metrics
type MetricsCollector interface {
	RecordHandshake(duration time.Duration)
	RecordError(errorType string)
}

// Client performs the replica side of the replication handshake against a
// master. The connection is kept open after a successful handshake and is
// released by Close.
type Client struct {
	masterAddr    string
	listeningPort uint16

	mu    sync.Mutex
	sess  *session.Session
	state State

	logger         Logger
	metrics        MetricsCollector
	connectTimeout time.Duration
}

// NewClient creates a handshake client for masterAddr. listeningPort is the
// port this process serves on and is announced to the master.
func NewClient(masterAddr string, listeningPort uint16) *Client {
	return &Client{
		masterAddr:     masterAddr,
		listeningPort:  listeningPort,
		logger:         &defaultLogger{},
		connectTimeout: 5 * time.Second,
	}
}

// SetLogger sets the logger
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetMetrics sets the metrics collector
func (c *Client) SetMetrics(metrics MetricsCollector) {
	c.metrics = metrics
}

// SetConnectTimeout bounds the dial to the master. Zero disables the bound.
func (c *Client) SetConnectTimeout(timeout time.Duration) {
	c.connectTimeout = timeout
}

// MasterAddr returns the master address
func (c *Client) MasterAddr() string {
	return c.masterAddr
}

// State returns the current handshake state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Handshake connects to the master and runs PING, REPLCONF listening-port
// and REPLCONF capa psync2 in order. The first failing step ends the
// handshake in StateFailed and no later step is attempted. The returned
// error is a *HandshakeError.
func (c *Client) Handshake(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrHandshakeDone
	}
	c.mu.Unlock()

	start := time.Now()
	c.logger.Info("Starting replication handshake", "master", c.masterAddr, "listening_port", c.listeningPort)

	if err := c.connect(ctx); err != nil {
		return c.fail(StateDisconnected, fmt.Errorf("%w: %w", ErrCannotConnectMaster, err))
	}
	c.setState(StateConnected)

	// Unblock pending reads and writes if the caller gives up
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		if c.sess != nil {
			_ = c.sess.SetDeadline(time.Unix(1, 0))
		}
		c.mu.Unlock()
	})
	defer stop()

	steps := []struct {
		from    State
		to      State
		cmd     command.Command
		expect  string
		errKind error
	}{
		{StateConnected, StatePongReceived, &command.Ping{}, "PONG", ErrCannotConnectMaster},
		{StatePongReceived, StateListeningPortAcked, command.NewListeningPort(c.listeningPort), "OK", ErrUnexpectedReply},
		{StateListeningPortAcked, StateCapabilitiesAcked, command.NewCapabilities(Capability), "OK", ErrUnexpectedReply},
	}

	for _, step := range steps {
		reply, err := c.roundtrip(step.cmd)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			if step.errKind == ErrCannotConnectMaster {
				err = fmt.Errorf("%w: %w", ErrCannotConnectMaster, err)
			}
			return c.fail(step.from, fmt.Errorf("%s: %w", command.String(step.cmd), err))
		}
		if !reply.IsSimpleString(step.expect) {
			return c.fail(step.from, fmt.Errorf("%w: %s replied %s, want +%s",
				step.errKind, command.String(step.cmd), describe(reply), step.expect))
		}
		c.setState(step.to)
		c.logger.Debug("Handshake step acknowledged", "command", command.String(step.cmd), "state", step.to.String())
	}

	c.setState(StateHandshakeComplete)
	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordHandshake(duration)
	}
	c.logger.Info("Replication handshake completed", "master", c.masterAddr, "duration", duration)
	return nil
}

// Close releases the connection to the master
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil
	}
	err := c.sess.Close()
	c.sess = nil
	return err
}

// connect dials the master
func (c *Client) connect(ctx context.Context) error {
	c.logger.Debug("Connecting to master", "addr", c.masterAddr)

	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}
	sess, err := session.Dial(ctx, c.masterAddr)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	c.logger.Info("Connected to master", "addr", c.masterAddr)
	return nil
}

// roundtrip sends cmd and reads exactly one reply
func (c *Client) roundtrip(cmd command.Command) (protocol.Value, error) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return protocol.Value{}, ErrCannotConnectMaster
	}
	return sess.Roundtrip(cmd)
}

// fail moves the client to StateFailed and closes the connection
func (c *Client) fail(at State, err error) error {
	c.mu.Lock()
	c.state = StateFailed
	if c.sess != nil {
		_ = c.sess.Close()
		c.sess = nil
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordError("handshake")
	}
	c.logger.Error("Replication handshake failed", "master", c.masterAddr, "state", at.String(), "error", err)
	return &HandshakeError{State: at, Err: err}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// describe renders a reply for error messages
func describe(v protocol.Value) string {
	switch v.Type {
	case protocol.TypeSimpleString:
		return "+" + v.String()
	case protocol.TypeError:
		return "-" + v.Error()
	default:
		return v.Type.String()
	}
}

// defaultLogger discards everything
type defaultLogger struct{}

func (l *defaultLogger) Debug(msg string, fields ...interface{}) {}

func (l *defaultLogger) Info(msg string, fields ...interface{}) {}

func (l *defaultLogger) Error(msg string, fields ...interface{}) {}
