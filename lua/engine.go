package lua

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
)

// ErrNestedEval is returned when a script tries to run EVAL through redis.call
var ErrNestedEval = errors.New("EVAL is not allowed from scripts")

// ErrScriptInterrupted is returned when a script's context ends before the
// script finishes
var ErrScriptInterrupted = errors.New("script interrupted")

// Executor runs a single command and returns its reply
type Executor interface {
	Execute(cmd command.Command) protocol.Value
}

// Engine provides Redis-compatible Lua script execution. Commands issued by
// a script through redis.call and redis.pcall are handed to the Executor
// synchronously, so a script runs as one uninterrupted unit.
type Engine struct {
	exec Executor
}

// NewEngine creates a new Lua execution engine
func NewEngine(exec Executor) *Engine {
	return &Engine{
		exec: exec,
	}
}

// Eval executes a Lua script with the given keys and arguments and converts
// its return value to a reply. The script is stopped when ctx ends.
func (e *Engine) Eval(ctx context.Context, script string, keys [][]byte, args [][]byte) (protocol.Value, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	if err := openLibs(L); err != nil {
		return protocol.Value{}, err
	}

	// Set up the Redis-compatible environment
	e.setupRedisAPI(L, keys, args)

	if err := L.DoString(script); err != nil {
		if ctx.Err() != nil {
			return protocol.Value{}, fmt.Errorf("%w: %w", ErrScriptInterrupted, ctx.Err())
		}
		return protocol.Value{}, fmt.Errorf("script execution error: %w", err)
	}

	if L.GetTop() == 0 {
		return protocol.NullBulkString(), nil
	}
	return toReply(L.Get(1)), nil
}

// openLibs loads the subset of the standard library available to scripts
func openLibs(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("open lua library %s: %w", lib.name, err)
		}
	}
	// No file access from scripts
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	return nil
}

// setupRedisAPI configures the Lua state with Redis-compatible functions
func (e *Engine) setupRedisAPI(L *lua.LState, keys [][]byte, args [][]byte) {
	keysTable := L.NewTable()
	for i, key := range keys {
		keysTable.RawSetInt(i+1, lua.LString(key)) // Lua arrays are 1-indexed
	}
	L.SetGlobal("KEYS", keysTable)

	argvTable := L.NewTable()
	for i, arg := range args {
		argvTable.RawSetInt(i+1, lua.LString(arg))
	}
	L.SetGlobal("ARGV", argvTable)

	redisTable := L.NewTable()
	L.SetFuncs(redisTable, map[string]lua.LGFunction{
		"call":         e.redisCall,
		"pcall":        e.redisPCall,
		"status_reply": statusReply,
		"error_reply":  errorReply,
	})
	L.SetGlobal("redis", redisTable)
}

// redisCall implements redis.call(). Error replies are raised as Lua errors.
func (e *Engine) redisCall(L *lua.LState) int {
	reply, err := e.executeRedisCommand(L)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	if reply.IsError() {
		L.RaiseError("%s", reply.Error())
		return 0
	}
	L.Push(toLua(L, reply))
	return 1
}

// redisPCall implements redis.pcall(). Errors are returned as a table with
// an err field.
func (e *Engine) redisPCall(L *lua.LState) int {
	reply, err := e.executeRedisCommand(L)
	if err != nil {
		reply = protocol.NewError("ERR " + err.Error())
	}
	L.Push(toLua(L, reply))
	return 1
}

// executeRedisCommand builds a command from the Lua call arguments and runs it
func (e *Engine) executeRedisCommand(L *lua.LState) (protocol.Value, error) {
	argc := L.GetTop()
	if argc == 0 {
		return protocol.Value{}, fmt.Errorf("please specify at least one argument for redis.call()")
	}

	parts := make([]protocol.Value, argc)
	for i := 1; i <= argc; i++ {
		switch v := L.Get(i).(type) {
		case lua.LString:
			parts[i-1] = protocol.NewBulkStringFromString(string(v))
		case lua.LNumber:
			parts[i-1] = protocol.NewBulkStringFromString(v.String())
		default:
			return protocol.Value{}, fmt.Errorf("lua redis lib command arguments must be strings or integers")
		}
	}

	cmd, err := command.FromValue(protocol.NewArray(parts...))
	if err != nil {
		return protocol.Value{}, err
	}
	if _, ok := cmd.(*command.Eval); ok {
		return protocol.Value{}, ErrNestedEval
	}
	return e.exec.Execute(cmd), nil
}

// statusReply implements redis.status_reply()
func statusReply(L *lua.LState) int {
	t := L.NewTable()
	t.RawSetString("ok", lua.LString(L.CheckString(1)))
	L.Push(t)
	return 1
}

// errorReply implements redis.error_reply()
func errorReply(L *lua.LState) int {
	t := L.NewTable()
	t.RawSetString("err", lua.LString(L.CheckString(1)))
	L.Push(t)
	return 1
}

// toLua converts a reply to a Lua value following the Redis conversion rules
func toLua(L *lua.LState, v protocol.Value) lua.LValue {
	switch v.Type {
	case protocol.TypeSimpleString:
		t := L.NewTable()
		t.RawSetString("ok", lua.LString(v.Data))
		return t
	case protocol.TypeError:
		t := L.NewTable()
		t.RawSetString("err", lua.LString(v.Data))
		return t
	case protocol.TypeInteger:
		return lua.LNumber(v.Integer)
	case protocol.TypeBulkString:
		if v.IsNull {
			return lua.LFalse // Redis nil becomes false in Lua
		}
		return lua.LString(v.Data)
	case protocol.TypeArray:
		if v.IsNull {
			return lua.LFalse
		}
		t := L.NewTable()
		for i, item := range v.Array {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// toReply converts a Lua value to a reply following the Redis conversion rules
func toReply(lv lua.LValue) protocol.Value {
	switch v := lv.(type) {
	case lua.LString:
		return protocol.NewBulkStringFromString(string(v))
	case lua.LNumber:
		// Numbers are truncated to integers
		return protocol.NewInteger(int64(v))
	case lua.LBool:
		if v {
			return protocol.NewInteger(1)
		}
		return protocol.NullBulkString()
	case *lua.LTable:
		if msg, ok := v.RawGetString("err").(lua.LString); ok {
			return protocol.NewError(sanitize(string(msg)))
		}
		if msg, ok := v.RawGetString("ok").(lua.LString); ok {
			return protocol.NewSimpleString(sanitize(string(msg)))
		}
		// Array part up to the first nil
		var items []protocol.Value
		for i := 1; ; i++ {
			item := v.RawGetInt(i)
			if item == lua.LNil {
				break
			}
			items = append(items, toReply(item))
		}
		return protocol.NewArray(items...)
	default:
		return protocol.NullBulkString()
	}
}

// sanitize strips line breaks, which simple strings and errors cannot carry
func sanitize(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
