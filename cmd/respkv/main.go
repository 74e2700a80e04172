// Command respkv runs a respkv node or talks to one.
//
//	respkv serve --port 6380 --replicaof "localhost 6379"
//	respkv ping --addr 127.0.0.1:6380
//	respkv info --addr 127.0.0.1:6380
//
// Every serve flag can also be set through the environment as
// RESPKV_<FLAG> (e.g. RESPKV_REPLICAOF="localhost 6379"), and from .env or
// .env.local files in the working directory.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
