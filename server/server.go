package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/engine"
	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/session"
)

// QueueSize is the number of requests that may wait for the engine loop.
// A connection sending into a full queue blocks until a slot frees up.
const QueueSize = 128

// Logger interface for server logging
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// MetricsCollector interface for server metrics
type MetricsCollector interface {
	RecordCommand(cmd string, duration time.Duration)
	RecordConnection(open bool)
	RecordError(errorType string)
}

// Server accepts RESP connections and executes their commands on a single
// engine loop. Network I/O runs concurrently per connection while command
// execution follows the order in which requests reach the loop.
type Server struct {
	engine *engine.Engine

	// Server configuration
	addr         string
	errorReplies bool
	logger       Logger
	metrics      MetricsCollector

	// Connection management
	listener net.Listener
	conns    chan net.Conn
	requests chan *engine.Request
	clients  *xsync.MapOf[uint64, *Client]
	nextID   atomic.Uint64

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Counters
	connCount    atomic.Int64
	commandCount atomic.Int64
	errorCount   atomic.Int64
}

// Client represents a connected client
type Client struct {
	id     uint64
	sess   *session.Session
	server *Server
	once   sync.Once
}

// NewServer creates a server listening on addr once started
func NewServer(addr string, eng *engine.Engine) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		engine:   eng,
		addr:     addr,
		logger:   &nopLogger{},
		conns:    make(chan net.Conn),
		requests: make(chan *engine.Request, QueueSize),
		clients:  xsync.NewMapOf[uint64, *Client](),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetMetrics sets the metrics collector
func (s *Server) SetMetrics(metrics MetricsCollector) {
	s.metrics = metrics
}

// SetErrorReplies makes the server answer malformed requests with an error
// reply instead of closing the connection. A request that is a well formed
// frame but not a valid command keeps the connection open; a frame that
// cannot be decoded still closes it after the reply.
func (s *Server) SetErrorReplies(enabled bool) {
	s.errorReplies = enabled
}

// Start listens on the configured address and starts the acceptor and the
// engine loop
func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.wg.Add(2)
	go s.acceptConnections()
	go s.run()

	s.logger.Info("Server started", "addr", s.listener.Addr().String())
	return nil
}

// Stop closes the listener and every client connection and waits for all
// server goroutines to finish
func (s *Server) Stop() error {
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.clients.Range(func(_ uint64, client *Client) bool {
		client.Close()
		return true
	})

	s.wg.Wait()
	s.logger.Info("Server stopped")
	return nil
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stats returns server statistics
func (s *Server) Stats() map[string]interface{} {
	return map[string]interface{}{
		"connected_clients": s.clients.Size(),
		"total_commands":    s.commandCount.Load(),
		"total_errors":      s.errorCount.Load(),
		"total_connections": s.connCount.Load(),
		"pending_requests":  len(s.requests),
	}
}

// acceptConnections hands every accepted connection to the engine loop
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return // Server is shutting down
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Accept failed", "error", err)
			continue
		}

		select {
		case s.conns <- conn:
		case <-s.ctx.Done():
			conn.Close()
			return
		}
	}
}

// run is the engine loop. It alternates between registering new
// connections and executing queued requests one at a time in arrival order.
func (s *Server) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case conn := <-s.conns:
			s.handleNewClient(conn)
		case req := <-s.requests:
			s.execute(req)
		}
	}
}

// execute runs a single request and hands the reply back to its connection
func (s *Server) execute(req *engine.Request) {
	start := time.Now()
	reply := s.engine.ExecuteContext(s.ctx, req.Cmd)
	s.commandCount.Add(1)
	if s.metrics != nil {
		s.metrics.RecordCommand(req.Cmd.Name(), time.Since(start))
	}
	req.Respond(reply)
}

// handleNewClient registers conn and starts its connection task
func (s *Server) handleNewClient(conn net.Conn) {
	s.connCount.Add(1)

	client := &Client{
		id:     s.nextID.Add(1),
		sess:   session.New(conn),
		server: s,
	}
	s.clients.Store(client.id, client)
	if s.metrics != nil {
		s.metrics.RecordConnection(true)
	}
	if s.ctx.Err() != nil {
		client.Close()
		return
	}
	s.logger.Debug("Client connected", "id", client.id, "addr", client.sess.RemoteAddr())

	s.wg.Add(1)
	go client.handle()
}

// Close closes the client connection
func (c *Client) Close() {
	c.once.Do(func() {
		c.sess.Close()
		c.server.clients.Delete(c.id)
		if c.server.metrics != nil {
			c.server.metrics.RecordConnection(false)
		}
	})
}

// handle reads requests from the connection until it fails or closes
func (c *Client) handle() {
	defer c.server.wg.Done()
	defer c.Close()

	for {
		value, err := c.sess.ReadValue()
		if err != nil {
			c.readFailed(err)
			return
		}

		cmd, err := command.FromValue(value)
		if err != nil {
			if !c.rejected(value, err) {
				return
			}
			continue
		}

		reply, ok := c.submit(cmd)
		if !ok {
			return
		}
		if err := c.sess.WriteValue(reply); err != nil {
			c.server.logger.Debug("Write failed", "id", c.id, "error", err)
			return
		}
	}
}

// submit queues cmd for the engine loop and waits for the reply
func (c *Client) submit(cmd command.Command) (protocol.Value, bool) {
	req := engine.NewRequest(cmd)

	select {
	case c.server.requests <- req:
	case <-c.server.ctx.Done():
		return protocol.Value{}, false
	}

	select {
	case reply := <-req.Reply():
		return reply, true
	case <-c.server.ctx.Done():
		return protocol.Value{}, false
	}
}

// readFailed logs why the connection ends. Undecodable input is answered
// with an error reply first when error replies are enabled.
func (c *Client) readFailed(err error) {
	switch {
	case errors.Is(err, io.EOF):
		c.server.logger.Debug("Client disconnected", "id", c.id)
	case c.server.ctx.Err() != nil:
	case isDecodeError(err):
		c.server.recordError("decode")
		c.server.logger.Debug("Closing client after protocol error", "id", c.id, "error", err)
		if c.server.errorReplies {
			_ = c.sess.WriteValue(errorReply(protocol.Value{}, err))
		}
	default:
		c.server.logger.Debug("Read failed", "id", c.id, "error", err)
	}
}

// rejected handles a frame that is not a valid command and reports whether
// the connection stays open
func (c *Client) rejected(value protocol.Value, err error) bool {
	c.server.recordError("parse")
	c.server.logger.Debug("Rejected command", "id", c.id, "error", err)

	if !c.server.errorReplies {
		return false
	}
	if werr := c.sess.WriteValue(errorReply(value, err)); werr != nil {
		return false
	}
	return true
}

func (s *Server) recordError(errorType string) {
	s.errorCount.Add(1)
	if s.metrics != nil {
		s.metrics.RecordError(errorType)
	}
}

// nopLogger discards everything
type nopLogger struct{}

func (l *nopLogger) Debug(msg string, fields ...interface{}) {}

func (l *nopLogger) Info(msg string, fields ...interface{}) {}

func (l *nopLogger) Error(msg string, fields ...interface{}) {}
