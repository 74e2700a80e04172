package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/raniellyferreira/respkv/protocol"
)

// Command is one of the typed commands understood by the server:
// *Ping, *Echo, *Set, *Get, *Info, *ReplConf or *Eval.
type Command interface {
	// Name returns the upper-case command name
	Name() string

	// Value renders the command as the array of bulk strings a client sends
	Value() protocol.Value

	command()
}

// Ping is PING [message]. A nil Message means no message was given.
type Ping struct {
	Message []byte
}

// Echo is ECHO message
type Echo struct {
	Message []byte
}

// Set is SET key value [PX milliseconds]
type Set struct {
	Key       []byte
	Val       []byte
	Expiry    time.Duration
	HasExpiry bool
}

// Get is GET key
type Get struct {
	Key []byte
}

// InfoSection selects the INFO section to report
type InfoSection int

const (
	// InfoDefault is used when no section or an unknown one is given
	InfoDefault InfoSection = iota
	// InfoReplication is the "replication" section
	InfoReplication
)

// String returns the section name as sent on the wire
func (s InfoSection) String() string {
	if s == InfoReplication {
		return "replication"
	}
	return "default"
}

// Info is INFO [section]
type Info struct {
	Section InfoSection
}

// ReplConfOption identifies which REPLCONF setting is carried
type ReplConfOption int

const (
	// ListeningPort is REPLCONF listening-port <port>
	ListeningPort ReplConfOption = iota
	// Capabilities is REPLCONF capa <capability>
	Capabilities
)

// ReplConf is REPLCONF listening-port <port> | REPLCONF capa <capability>
type ReplConf struct {
	Option     ReplConfOption
	Port       uint16
	Capability string
}

// NewListeningPort returns REPLCONF listening-port port
func NewListeningPort(port uint16) *ReplConf {
	return &ReplConf{Option: ListeningPort, Port: port}
}

// NewCapabilities returns REPLCONF capa capability
func NewCapabilities(capability string) *ReplConf {
	return &ReplConf{Option: Capabilities, Capability: capability}
}

// Eval is EVAL script numkeys [key ...] [arg ...]
type Eval struct {
	Script string
	Keys   [][]byte
	Args   [][]byte
}

func (*Ping) command()     {}
func (*Echo) command()     {}
func (*Set) command()      {}
func (*Get) command()      {}
func (*Info) command()     {}
func (*ReplConf) command() {}
func (*Eval) command()     {}

// Name returns the command name as matched by the parser, upper-cased.
func (*Ping) Name() string     { return "PING" }
func (*Echo) Name() string     { return "ECHO" }
func (*Set) Name() string      { return "SET" }
func (*Get) Name() string      { return "GET" }
func (*Info) Name() string     { return "INFO" }
func (*ReplConf) Name() string { return "REPLCONF" }
func (*Eval) Name() string     { return "EVAL" }

// Value renders PING with its optional message
func (c *Ping) Value() protocol.Value {
	if c.Message == nil {
		return bulkArray("PING")
	}
	return bulkArray("PING", c.Message)
}

// Value renders ECHO message
func (c *Echo) Value() protocol.Value {
	return bulkArray("ECHO", c.Message)
}

// Value renders SET key value, adding PX in milliseconds when an expiry is set
func (c *Set) Value() protocol.Value {
	if !c.HasExpiry {
		return bulkArray("SET", c.Key, c.Val)
	}
	ms := strconv.FormatInt(c.Expiry.Milliseconds(), 10)
	return bulkArray("SET", c.Key, c.Val, "PX", ms)
}

// Value renders GET key
func (c *Get) Value() protocol.Value {
	return bulkArray("GET", c.Key)
}

// Value renders INFO, naming the section unless it is the default one
func (c *Info) Value() protocol.Value {
	if c.Section == InfoDefault {
		return bulkArray("INFO")
	}
	return bulkArray("INFO", c.Section.String())
}

// Value renders the REPLCONF option it carries
func (c *ReplConf) Value() protocol.Value {
	if c.Option == ListeningPort {
		return bulkArray("REPLCONF", "listening-port", strconv.FormatUint(uint64(c.Port), 10))
	}
	return bulkArray("REPLCONF", "capa", c.Capability)
}

// Value renders EVAL with numkeys followed by the keys and then the args
func (c *Eval) Value() protocol.Value {
	parts := []interface{}{"EVAL", c.Script, strconv.Itoa(len(c.Keys))}
	for _, k := range c.Keys {
		parts = append(parts, k)
	}
	for _, a := range c.Args {
		parts = append(parts, a)
	}
	return bulkArray(parts...)
}

// bulkArray builds an array of bulk strings from string and []byte parts
func bulkArray(parts ...interface{}) protocol.Value {
	values := make([]protocol.Value, len(parts))
	for i, part := range parts {
		switch p := part.(type) {
		case string:
			values[i] = protocol.NewBulkStringFromString(p)
		case []byte:
			values[i] = protocol.NewBulkString(p)
		}
	}
	return protocol.NewArray(values...)
}

// String returns a human readable form of a command, used in logs
func String(c Command) string {
	v := c.Value()
	parts := make([]string, len(v.Array))
	for i, item := range v.Array {
		parts[i] = string(item.Data)
	}
	return strings.Join(parts, " ")
}
