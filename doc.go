// Package respkv is a small in-memory key-value server that speaks RESP2.
//
// A Node owns a sharded in-memory store, an engine that executes commands
// against it one at a time, and a TCP server that funnels every client
// connection into the engine through a bounded queue. Keys may carry a
// millisecond expiry which is enforced lazily when the key is read.
//
// Basic usage:
//
//	node, err := respkv.New(respkv.WithPort(6379))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer node.Close()
//
//	if err := node.Start(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//
// A node configured with WithReplicaOf runs the replication handshake
// (PING, REPLCONF listening-port, REPLCONF capa psync2) against its master
// before it serves anything, and refuses to start when the handshake fails.
//
// Supported commands are PING, ECHO, SET (with PX), GET, INFO replication,
// REPLCONF and EVAL. The metrics package provides a Prometheus
// MetricsCollector and cmd/respkv a command line front end.
package respkv
