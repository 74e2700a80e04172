package respkv

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/raniellyferreira/respkv/engine"
	"github.com/raniellyferreira/respkv/replication"
	"github.com/raniellyferreira/respkv/server"
	"github.com/raniellyferreira/respkv/storage"
)

// Node is a single respkv process: a store, the engine executing commands
// against it, the RESP server in front of the engine and, for a replica,
// the handshake client connected to the master
type Node struct {
	// Configuration
	config *config

	// Components
	storage   *storage.Memory
	repl      *replication.Config
	engine    *engine.Engine
	server    *server.Server
	handshake *replication.Client

	// State
	mu      sync.RWMutex
	started bool
	closed  bool
}

// New creates a new Node with the given options
//
// The node is created but not started. Use Start() to run the handshake
// (for a replica) and begin serving.
//
// Example:
//
//	node, err := respkv.New(
//		respkv.WithPort(6380),
//		respkv.WithReplicaOf("localhost 6379"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
func New(opts ...Option) (*Node, error) {
	cfg := defaultConfig()

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// Replication role is fixed for the life of the node
	var repl *replication.Config
	if cfg.masterAddr != "" {
		repl = replication.NewReplicaConfig(cfg.masterAddr)
	} else {
		var err error
		repl, err = replication.NewMasterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to generate replication id: %w", err)
		}
	}

	stor := storage.NewMemory(storage.WithShardCount(cfg.shardCount))
	if cfg.metrics != nil {
		stor.AddObserver(&keyEventObserver{metrics: cfg.metrics})
	}

	eng := engine.New(stor, repl, engine.WithScriptTimeout(cfg.scriptTimeout))

	srv := server.NewServer(cfg.addr, eng)
	srv.SetLogger(&loggerAdapter{logger: cfg.logger})
	srv.SetErrorReplies(cfg.errorReplies)
	if cfg.metrics != nil {
		srv.SetMetrics(&serverMetrics{metrics: cfg.metrics})
	}

	return &Node{
		config:  cfg,
		storage: stor,
		repl:    repl,
		engine:  eng,
		server:  srv,
	}, nil
}

// Start runs the replication handshake when the node is a replica and then
// starts serving clients. A failed handshake aborts startup and nothing is
// served.
//
// Example:
//
//	if err := node.Start(context.Background()); err != nil {
//		log.Fatal(err)
//	}
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}

	if n.started {
		return nil // Already started
	}

	if !n.repl.IsMaster() {
		if err := n.runHandshake(ctx); err != nil {
			n.config.logger.Error("Replication handshake failed",
				Field{Key: "master", Value: n.repl.MasterAddr}, Field{Key: "error", Value: err})
			return &StartupError{Phase: "handshake", Err: &ConnectionError{Addr: n.repl.MasterAddr, Err: err}}
		}
	}

	if err := n.server.Start(); err != nil {
		n.config.logger.Error("Failed to start server", Field{Key: "error", Value: err}, Field{Key: "addr", Value: n.config.addr})
		if n.handshake != nil {
			n.handshake.Close()
		}
		return &StartupError{Phase: "listen", Err: err}
	}

	n.started = true
	n.config.logger.Info("Node listening",
		Field{Key: "addr", Value: n.server.Addr()}, Field{Key: "role", Value: n.repl.Role})
	return nil
}

// runHandshake performs PING, REPLCONF listening-port and REPLCONF capa
// against the master. The connection stays open until Close.
func (n *Node) runHandshake(ctx context.Context) error {
	port, err := listeningPort(n.config.addr)
	if err != nil {
		return err
	}

	client := replication.NewClient(n.repl.MasterAddr, port)
	client.SetLogger(&loggerAdapter{logger: n.config.logger})
	client.SetConnectTimeout(n.config.connectTimeout)
	if n.config.metrics != nil {
		client.SetMetrics(&replicationMetrics{metrics: n.config.metrics})
	}

	n.handshake = client
	return client.Handshake(ctx)
}

// listeningPort extracts the port announced to the master from addr
func listeningPort(addr string) (uint16, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: port %q", ErrInvalidConfig, portStr)
	}
	return uint16(port), nil
}

// Close stops serving, releases the master connection and clears the store
//
// Example:
//
//	defer node.Close()
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}

	n.closed = true

	// Stop server first
	if n.started {
		if err := n.server.Stop(); err != nil {
			n.config.logger.Error("Error stopping server", Field{Key: "error", Value: err})
		}
	}

	if n.handshake != nil {
		if err := n.handshake.Close(); err != nil {
			n.config.logger.Debug("Error closing master connection", Field{Key: "error", Value: err})
		}
	}

	return n.storage.Close()
}

// Addr returns the address the node listens on, resolved once started
func (n *Node) Addr() string {
	return n.server.Addr()
}

// Role returns the node's replication role
func (n *Node) Role() replication.Role {
	return n.repl.Role
}

// HandshakeState returns the state of the replication handshake. A master
// always reports StateDisconnected.
func (n *Node) HandshakeState() replication.State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.handshake == nil {
		return replication.StateDisconnected
	}
	return n.handshake.State()
}

// Engine returns the engine executing the node's commands
func (n *Node) Engine() *engine.Engine {
	return n.engine
}

// Storage returns the underlying storage for direct access
//
// Example:
//
//	value, exists := node.Storage().Get([]byte("mykey"))
func (n *Node) Storage() storage.Store {
	return n.storage
}

// GetInfo returns server statistics together with role and version details
func (n *Node) GetInfo() map[string]interface{} {
	info := n.server.Stats()
	info["keys"] = n.storage.Len()
	info["role"] = n.repl.Role.String()
	if n.repl.IsMaster() {
		info["master_replid"] = n.repl.ReplID
		info["master_repl_offset"] = n.repl.ReplOffset
	} else {
		info["master_host"] = n.repl.MasterAddr
		info["handshake_state"] = n.HandshakeState().String()
	}
	info["version"] = VersionInfo()
	return info
}
