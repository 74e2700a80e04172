package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/lua"
	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/replication"
	"github.com/raniellyferreira/respkv/storage"
)

// ErrInfoDefault is the reply to INFO without the replication section
const ErrInfoDefault = "ERR INFO default section not supported"

// ErrScriptTimedOut describes a script stopped before it finished
const ErrScriptTimedOut = "script timed out or was interrupted"

// DefaultScriptTimeout bounds how long one EVAL may hold the engine
const DefaultScriptTimeout = 5 * time.Second

// Engine executes commands against a Store. Execute is not meant to be
// called concurrently: the server funnels every request through a single
// loop so commands run in a total order.
type Engine struct {
	store         storage.Store
	repl          *replication.Config
	now           func() time.Time
	scripts       *lua.Engine
	scriptTimeout time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces time.Now when computing SET deadlines
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithScriptTimeout sets how long a script may run before it is stopped.
// Zero or a negative value leaves scripts bounded only by the caller's context.
func WithScriptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.scriptTimeout = d
	}
}

// New creates an engine over store for a process with the given
// replication configuration
func New(store storage.Store, repl *replication.Config, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		repl:          repl,
		now:           time.Now,
		scriptTimeout: DefaultScriptTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scripts = lua.NewEngine(e)
	return e
}

// Execute runs cmd and returns its reply. Commands that passed parsing
// never fail; problems are reported as error replies.
func (e *Engine) Execute(cmd command.Command) protocol.Value {
	return e.ExecuteContext(context.Background(), cmd)
}

// ExecuteContext is Execute with a context that stops a running script
// when it ends
func (e *Engine) ExecuteContext(ctx context.Context, cmd command.Command) protocol.Value {
	switch c := cmd.(type) {
	case *command.Ping:
		if c.Message == nil {
			return protocol.NewSimpleString("PONG")
		}
		return protocol.NewArray(
			protocol.NewBulkStringFromString("PONG"),
			protocol.NewBulkString(c.Message),
		)

	case *command.Echo:
		return protocol.NewBulkString(c.Message)

	case *command.Set:
		var deadline *time.Time
		if c.HasExpiry {
			d := e.now().Add(c.Expiry)
			deadline = &d
		}
		e.store.Set(c.Key, c.Val, deadline)
		return protocol.NewSimpleString("OK")

	case *command.Get:
		value, ok := e.store.Get(c.Key)
		if !ok {
			return protocol.NullBulkString()
		}
		return protocol.NewBulkString(value)

	case *command.Info:
		if c.Section == command.InfoReplication {
			return protocol.NewBulkStringFromString(e.replicationInfo())
		}
		return protocol.NewError(ErrInfoDefault)

	case *command.ReplConf:
		return protocol.NewSimpleString("OK")

	case *command.Eval:
		return e.eval(ctx, c)

	default:
		return protocol.NewError("ERR unknown command '" + cmd.Name() + "'")
	}
}

// eval runs a script under the script timeout
func (e *Engine) eval(ctx context.Context, c *command.Eval) protocol.Value {
	if e.scriptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.scriptTimeout)
		defer cancel()
	}

	reply, err := e.scripts.Eval(ctx, c.Script, c.Keys, c.Args)
	if err != nil {
		if errors.Is(err, lua.ErrScriptInterrupted) {
			return protocol.NewError("ERR Error running script: " + ErrScriptTimedOut)
		}
		return protocol.NewError("ERR Error running script: " + oneLine(err.Error()))
	}
	return reply
}

// replicationInfo renders the replication section of INFO
func (e *Engine) replicationInfo() string {
	if e.repl == nil || !e.repl.IsMaster() {
		return "role:" + replication.RoleReplica.String()
	}

	lines := []string{"role:" + replication.RoleMaster.String()}
	if e.repl.ReplID != "" {
		lines = append(lines,
			"master_replid:"+e.repl.ReplID,
			"master_repl_offset:"+strconv.FormatInt(e.repl.ReplOffset, 10),
		)
	}
	return strings.Join(lines, "\n")
}

// oneLine replaces line breaks so msg fits in a simple error
func oneLine(msg string) string {
	return strings.Join(strings.Fields(msg), " ")
}
