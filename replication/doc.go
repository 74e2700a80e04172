// Package replication holds the replication role of a process and the
// replica side of the master handshake.
//
// A master generates a 40 character replication id at startup. A replica
// connects to its master and announces itself before serving clients:
//
//	client := replication.NewClient("localhost:6379", 6380)
//	if err := client.Handshake(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// The handshake sends PING, REPLCONF listening-port <port> and
// REPLCONF capa psync2, in that order, and requires +PONG, +OK and +OK.
// Synchronization beyond the handshake is not implemented.
package replication
