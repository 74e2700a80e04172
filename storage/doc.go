// Package storage provides the key space used by the command engine.
//
// Memory is a sharded map from binary keys to entries carrying an optional
// absolute deadline. Each shard is guarded by a reader/writer lock so any
// number of readers may proceed together while writers are exclusive.
//
// Basic usage:
//
//	store := storage.NewMemory()
//	deadline := time.Now().Add(100 * time.Millisecond)
//	store.Set([]byte("key"), []byte("value"), &deadline)
//	value, ok := store.Get([]byte("key"))
//
// Expiration is passive only. There is no background sweep; an expired
// entry is removed the next time its key is read.
package storage
