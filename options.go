package respkv

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultPort is the port a node listens on when none is configured
const DefaultPort = 6379

// config holds the configuration for a Node
type config struct {
	// Listener settings
	addr string

	// Replication settings, empty masterAddr means the node is a master
	masterAddr     string
	connectTimeout time.Duration

	// Storage settings
	shardCount int

	// Scripting settings
	scriptTimeout time.Duration

	// Observability
	logger  Logger
	metrics MetricsCollector

	// Behavioral options
	errorReplies bool
}

// defaultConfig returns a configuration with sensible defaults
func defaultConfig() *config {
	return &config{
		addr:           net.JoinHostPort("127.0.0.1", strconv.Itoa(DefaultPort)),
		connectTimeout: 5 * time.Second,
		shardCount:     64,
		scriptTimeout:  5 * time.Second,
		logger:         &defaultLogger{level: LevelInfo},
	}
}

// Option represents a configuration option for a Node
type Option func(*config) error

// WithAddr sets the address the node listens on
//
// Example:
//
//	WithAddr("127.0.0.1:6380")
//	WithAddr("0.0.0.0:6379")
func WithAddr(addr string) Option {
	return func(c *config) error {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return &ConnectionError{Addr: addr, Err: ErrInvalidConfig}
		}
		c.addr = addr
		return nil
	}
}

// WithPort listens on 127.0.0.1 at port. Port 0 picks a free port.
//
// Example:
//
//	WithPort(6380)
func WithPort(port int) Option {
	return func(c *config) error {
		if port < 0 || port > 65535 {
			return ErrInvalidConfig
		}
		c.addr = net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
		return nil
	}
}

// WithReplicaOf makes the node a replica of the given master. The address
// may be written "host port" as on the command line, or "host:port".
//
// Example:
//
//	WithReplicaOf("localhost 6379")
//	WithReplicaOf("10.0.0.5:6379")
func WithReplicaOf(master string) Option {
	return func(c *config) error {
		addr, err := ParseMasterAddr(master)
		if err != nil {
			return err
		}
		c.masterAddr = addr
		return nil
	}
}

// ParseMasterAddr normalizes "host port" or "host:port" into "host:port"
func ParseMasterAddr(s string) (string, error) {
	s = strings.TrimSpace(s)
	if fields := strings.Fields(s); len(fields) == 2 {
		s = net.JoinHostPort(fields[0], fields[1])
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil || host == "" {
		return "", &ConnectionError{Addr: s, Err: ErrInvalidConfig}
	}
	if n, err := strconv.ParseUint(port, 10, 16); err != nil || n == 0 {
		return "", &ConnectionError{Addr: s, Err: ErrInvalidConfig}
	}
	return s, nil
}

// WithConnectTimeout sets the timeout for dialing the master
//
// Example:
//
//	WithConnectTimeout(10 * time.Second)
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.connectTimeout = timeout
		return nil
	}
}

// WithShardCount sets the number of storage shards, rounded up to a power of two
//
// Example:
//
//	WithShardCount(128)
func WithShardCount(count int) Option {
	return func(c *config) error {
		if count <= 0 {
			return ErrInvalidConfig
		}
		c.shardCount = count
		return nil
	}
}

// WithScriptTimeout bounds how long one EVAL may run before it is stopped
// with an error reply
//
// Example:
//
//	WithScriptTimeout(time.Second)
func WithScriptTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.scriptTimeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger for the node
//
// Example:
//
//	WithLogger(myCustomLogger)
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics enables metrics collection with the provided collector
//
// Example:
//
//	WithMetrics(metrics.NewPrometheus())
func WithMetrics(collector MetricsCollector) Option {
	return func(c *config) error {
		c.metrics = collector
		return nil
	}
}

// WithErrorReplies answers malformed requests with an error reply instead of
// closing the connection (default: false)
//
// Example:
//
//	WithErrorReplies(true) // needed by clients that send HELLO on connect
func WithErrorReplies(enabled bool) Option {
	return func(c *config) error {
		c.errorReplies = enabled
		return nil
	}
}
