package engine

import (
	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
)

// Request pairs a command with the single-use channel its reply is sent on
type Request struct {
	Cmd   command.Command
	reply chan protocol.Value
}

// NewRequest creates a request for cmd with a reply channel that holds one value
func NewRequest(cmd command.Command) *Request {
	return &Request{
		Cmd:   cmd,
		reply: make(chan protocol.Value, 1),
	}
}

// Respond delivers the reply. It never blocks: if a reply was already sent
// the value is discarded.
func (r *Request) Respond(v protocol.Value) {
	select {
	case r.reply <- v:
	default:
	}
}

// Reply returns the channel the reply arrives on
func (r *Request) Reply() <-chan protocol.Value {
	return r.reply
}
