// Package server serves the RESP protocol over TCP.
//
// One acceptor goroutine accepts connections and hands them to the engine
// loop. The engine loop registers each connection and starts a goroutine
// for it. Connection goroutines decode commands and queue them, each with
// its own reply channel, on a channel holding QueueSize requests. The
// engine loop executes queued requests one at a time, so every command
// across all connections runs in a single total order while reads and
// writes stay concurrent.
//
//	srv := server.NewServer("127.0.0.1:6379", engine.New(store, replCfg))
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Stop()
//
// By default a request that cannot be decoded or parsed closes its
// connection without a reply. SetErrorReplies(true) answers it with an
// error reply instead, which clients such as go-redis need because they
// send commands outside the supported set when connecting.
package server
