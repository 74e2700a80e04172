// Package engine executes typed commands against the store.
//
//	eng := engine.New(storage.NewMemory(), replCfg)
//	reply := eng.Execute(&command.Get{Key: []byte("foo")})
//
// PING without a message answers +PONG, with a message it answers the
// array [PONG, message]. SET always replaces both the value and any
// previous deadline. INFO supports the replication section only; the
// default section answers with an error reply.
//
// A Request carries a command to the server's engine loop together with a
// buffered reply channel, so answering a client that already went away
// never blocks the loop.
package engine
