package command_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
)

// request encodes parts as an array of bulk strings
func request(t *testing.T, parts ...string) []byte {
	t.Helper()
	values := make([]protocol.Value, len(parts))
	for i, p := range parts {
		values[i] = protocol.NewBulkStringFromString(p)
	}
	buf, err := protocol.Encode(protocol.NewArray(values...))
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestParsePing(t *testing.T) {
	cmd, err := command.Parse([]byte("*1\r\n$4\r\nPING\r\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ping, ok := cmd.(*command.Ping)
	if !ok {
		t.Fatalf("Parse() = %T, want *command.Ping", cmd)
	}
	if ping.Message != nil {
		t.Errorf("Message = %q, want nil", ping.Message)
	}

	cmd, err = command.Parse([]byte("*2\r\n$4\r\nping\r\n$5\r\nhello\r\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := cmd.(*command.Ping).Message; string(got) != "hello" {
		t.Errorf("Message = %q, want hello", got)
	}
}

func TestParseEcho(t *testing.T) {
	cmd, err := command.Parse(request(t, "EcHo", "YEET"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := cmd.(*command.Echo).Message; string(got) != "YEET" {
		t.Errorf("Message = %q, want YEET", got)
	}
}

func TestParseSet(t *testing.T) {
	tests := []struct {
		name      string
		parts     []string
		hasExpiry bool
		expiry    time.Duration
	}{
		{"no expiry", []string{"SET", "foo", "bar"}, false, 0},
		{"px upper", []string{"SET", "foo", "bar", "PX", "100"}, true, 100 * time.Millisecond},
		{"px lower", []string{"set", "foo", "bar", "px", "0"}, true, 0},
		{"px mixed", []string{"SET", "foo", "bar", "pX", "2500"}, true, 2500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := command.Parse(request(t, tt.parts...))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			set := cmd.(*command.Set)
			if string(set.Key) != "foo" || string(set.Val) != "bar" {
				t.Errorf("Set = %q/%q, want foo/bar", set.Key, set.Val)
			}
			if set.HasExpiry != tt.hasExpiry || set.Expiry != tt.expiry {
				t.Errorf("expiry = %v/%v, want %v/%v", set.HasExpiry, set.Expiry, tt.hasExpiry, tt.expiry)
			}
		})
	}
}

func TestParseGetAndInfo(t *testing.T) {
	cmd, err := command.Parse(request(t, "GET", "foo"))
	if err != nil {
		t.Fatal(err)
	}
	if got := cmd.(*command.Get).Key; string(got) != "foo" {
		t.Errorf("Key = %q, want foo", got)
	}

	sections := map[string]command.InfoSection{
		"replication": command.InfoReplication,
		"REPLICATION": command.InfoReplication,
		"server":      command.InfoDefault,
	}
	for arg, want := range sections {
		cmd, err := command.Parse(request(t, "INFO", arg))
		if err != nil {
			t.Fatalf("Parse(INFO %s) error = %v", arg, err)
		}
		if got := cmd.(*command.Info).Section; got != want {
			t.Errorf("INFO %s section = %v, want %v", arg, got, want)
		}
	}

	cmd, err = command.Parse(request(t, "INFO"))
	if err != nil {
		t.Fatal(err)
	}
	if got := cmd.(*command.Info).Section; got != command.InfoDefault {
		t.Errorf("INFO section = %v, want default", got)
	}
}

func TestParseReplConf(t *testing.T) {
	cmd, err := command.Parse(request(t, "REPLCONF", "listening-port", "6380"))
	if err != nil {
		t.Fatal(err)
	}
	rc := cmd.(*command.ReplConf)
	if rc.Option != command.ListeningPort || rc.Port != 6380 {
		t.Errorf("ReplConf = %+v, want listening-port 6380", rc)
	}

	cmd, err = command.Parse(request(t, "replconf", "CAPA", "psync2"))
	if err != nil {
		t.Fatal(err)
	}
	rc = cmd.(*command.ReplConf)
	if rc.Option != command.Capabilities || rc.Capability != "psync2" {
		t.Errorf("ReplConf = %+v, want capa psync2", rc)
	}
}

func TestParseEval(t *testing.T) {
	cmd, err := command.Parse(request(t, "EVAL", "return 1", "2", "k1", "k2", "a1"))
	if err != nil {
		t.Fatal(err)
	}
	ev := cmd.(*command.Eval)
	if ev.Script != "return 1" || len(ev.Keys) != 2 || len(ev.Args) != 1 {
		t.Errorf("Eval = %+v", ev)
	}
	if string(ev.Keys[1]) != "k2" || string(ev.Args[0]) != "a1" {
		t.Errorf("Eval keys/args = %q/%q", ev.Keys, ev.Args)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		check func(error) bool
	}{
		{"get no args", request(t, "GET"), isWrongNumArgs},
		{"get two args", request(t, "GET", "a", "b"), isWrongNumArgs},
		{"echo no args", request(t, "ECHO"), isWrongNumArgs},
		{"echo two args", request(t, "ECHO", "a", "b"), isWrongNumArgs},
		{"ping two args", request(t, "PING", "a", "b"), isWrongNumArgs},
		{"set one arg", request(t, "SET", "k"), isWrongNumArgs},
		{"set px without value", request(t, "SET", "k", "v", "PX"), isWrongNumArgs},
		{"set too many", request(t, "SET", "k", "v", "PX", "1", "extra"), isWrongNumArgs},
		{"set wrong keyword", request(t, "SET", "k", "v", "EX", "1"), command.IsInvalidArgument},
		{"set lone wrong keyword", request(t, "SET", "k", "v", "NX"), command.IsInvalidArgument},
		{"set bad millis", request(t, "SET", "k", "v", "PX", "soon"), isParseInt},
		{"set negative millis", request(t, "SET", "k", "v", "PX", "-1"), isParseInt},
		{"info two args", request(t, "INFO", "a", "b"), isWrongNumArgs},
		{"replconf one arg", request(t, "REPLCONF", "capa"), isWrongNumArgs},
		{"replconf bad key", request(t, "REPLCONF", "ack", "0"), command.IsInvalidArgument},
		{"replconf bad port", request(t, "REPLCONF", "listening-port", "70000"), command.IsInvalidArgument},
		{"eval missing numkeys", request(t, "EVAL", "return 1"), isWrongNumArgs},
		{"eval too many keys", request(t, "EVAL", "return 1", "3", "k"), isWrongNumArgs},
		{"eval bad numkeys", request(t, "EVAL", "return 1", "x"), command.IsInvalidArgument},
		{"unknown command", request(t, "FLUSHALL"), isInvalidCommand},
		{"empty array", []byte("*0\r\n"), isInvalidCommand},
		{"null array", []byte("*-1\r\n"), isInvalidCommand},
		{"not an array", []byte("+PING\r\n"), isInvalidCommand},
		{"integer name", []byte("*1\r\n:1\r\n"), isInvalidCommand},
		{"integer argument", []byte("*2\r\n$3\r\nGET\r\n:1\r\n"), command.IsInvalidArgument},
		{"null argument", []byte("*2\r\n$4\r\nECHO\r\n$-1\r\n"), command.IsInvalidArgument},
		{"decode error", []byte("!x\r\n"), func(err error) bool { return protocol.IsDecodeKind(err, protocol.KindUnknownType) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := command.Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", tt.input, cmd)
			}
			if !tt.check(err) {
				t.Errorf("Parse(%q) error = %v (%T)", tt.input, err, err)
			}
		})
	}
}

func TestInvalidArgumentCarriesValue(t *testing.T) {
	_, err := command.Parse(request(t, "SET", "k", "v", "EX", "1"))
	var ia *command.InvalidArgumentError
	if !errors.As(err, &ia) {
		t.Fatalf("error = %v, want *InvalidArgumentError", err)
	}
	if string(ia.Value.Data) != "EX" {
		t.Errorf("Value = %q, want EX", ia.Value.Data)
	}
}

func TestCommandValueRoundTrip(t *testing.T) {
	cmds := []command.Command{
		&command.Ping{},
		&command.Ping{Message: []byte("hi")},
		&command.Echo{Message: []byte("hey")},
		&command.Set{Key: []byte("k"), Val: []byte("v")},
		&command.Set{Key: []byte("k"), Val: []byte("v"), Expiry: 200 * time.Millisecond, HasExpiry: true},
		&command.Get{Key: []byte("k")},
		&command.Info{Section: command.InfoReplication},
		command.NewListeningPort(6380),
		command.NewCapabilities("psync2"),
		&command.Eval{Script: "return 1", Keys: [][]byte{[]byte("a")}, Args: [][]byte{[]byte("b")}},
	}

	for _, c := range cmds {
		buf, err := protocol.Encode(c.Value())
		if err != nil {
			t.Fatalf("Encode(%s) error = %v", command.String(c), err)
		}
		parsed, err := command.Parse(buf)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", buf, err)
		}
		if !parsed.Value().Equal(c.Value()) {
			t.Errorf("round trip %s = %s", command.String(c), command.String(parsed))
		}
	}
}

func TestSetValueWithExpiry(t *testing.T) {
	c := &command.Set{Key: []byte("key"), Val: []byte("value"), Expiry: 200 * time.Millisecond, HasExpiry: true}
	if got := command.String(c); got != "SET key value PX 200" {
		t.Errorf("String() = %q", got)
	}

	buf, _ := protocol.Encode(command.NewListeningPort(6380).Value())
	want := "*3\r\n$8\r\nREPLCONF\r\n$14\r\nlistening-port\r\n$4\r\n6380\r\n"
	if !bytes.Equal(buf, []byte(want)) {
		t.Errorf("REPLCONF encoding = %q, want %q", buf, want)
	}
}

func isWrongNumArgs(err error) bool  { return errors.Is(err, command.ErrWrongNumArgs) }
func isInvalidCommand(err error) bool { return errors.Is(err, command.ErrInvalidCommand) }
func isParseInt(err error) bool {
	return protocol.IsDecodeKind(err, protocol.KindParseInt) && strings.Contains(err.Error(), "invalid integer")
}
