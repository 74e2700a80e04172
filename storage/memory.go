package storage

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// shard represents a single shard of data with its own lock
type shard struct {
	mu   sync.RWMutex
	data map[string]*Entry
}

// Memory implements an in-memory Store. Keys are spread over a fixed number
// of shards, each guarded by its own reader/writer lock. Expiration is
// passive: an expired entry stays in memory until the next Get of its key.
type Memory struct {
	shards    []shard
	shardMask uint64

	now func() time.Time

	mu        sync.RWMutex
	observers []Observer
}

// MemoryOption is a function that configures a Memory instance
type MemoryOption func(*Memory)

// WithShardCount sets the number of shards for the storage
// The number is automatically rounded up to the next power of 2
func WithShardCount(count int) MemoryOption {
	return func(s *Memory) {
		if count > 0 {
			n := nextPowerOf2(count)
			s.shards = make([]shard, n)
			s.shardMask = uint64(n - 1)
		}
	}
}

// WithClock replaces time.Now as the source of the current time
func WithClock(now func() time.Time) MemoryOption {
	return func(s *Memory) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemory creates a new in-memory storage instance with 64 shards by default
func NewMemory(opts ...MemoryOption) *Memory {
	s := &Memory{
		shards:    make([]shard, 64),
		shardMask: 63,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	for i := range s.shards {
		s.shards[i].data = make(map[string]*Entry)
	}

	return s
}

// nextPowerOf2 returns the next power of 2 >= n
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// shardFor returns the shard owning key
func (s *Memory) shardFor(key []byte) *shard {
	return &s.shards[xxhash.Sum64(key)&s.shardMask]
}

// Get retrieves a value by key
func (s *Memory) Get(key []byte) ([]byte, bool) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	entry, exists := sh.data[string(key)]
	if !exists {
		sh.mu.RUnlock()
		return nil, false
	}

	if !entry.ExpiredAt(s.now()) {
		result := make([]byte, len(entry.Value))
		copy(result, entry.Value)
		sh.mu.RUnlock()
		return result, true
	}
	sh.mu.RUnlock()

	// The entry looked expired under the read lock. A concurrent Set may
	// have replaced it since, so the deadline is checked again before
	// deleting. The key is reported missing either way.
	s.deleteExpiredKey(sh, key)
	return nil, false
}

// deleteExpiredKey deletes key from sh if it is still expired under the write lock
func (s *Memory) deleteExpiredKey(sh *shard, key []byte) {
	sh.mu.Lock()
	entry, exists := sh.data[string(key)]
	if !exists || !entry.ExpiredAt(s.now()) {
		sh.mu.Unlock()
		return
	}
	delete(sh.data, string(key))
	sh.mu.Unlock()

	s.mu.RLock()
	for _, observer := range s.observers {
		observer.OnKeyExpired(key)
	}
	s.mu.RUnlock()
}

// Set stores a value with optional expiration
func (s *Memory) Set(key, value []byte, deadline *time.Time) {
	entry := &Entry{
		Value: append([]byte(nil), value...),
	}
	if deadline != nil {
		d := *deadline
		entry.Deadline = &d
	}

	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.data[string(key)] = entry
	sh.mu.Unlock()

	s.mu.RLock()
	for _, observer := range s.observers {
		observer.OnKeySet(key)
	}
	s.mu.RUnlock()
}

// Peek returns a copy of the raw entry under key, expired or not
func (s *Memory) Peek(key []byte) (Entry, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	entry, exists := sh.data[string(key)]
	if !exists {
		return Entry{}, false
	}
	out := Entry{Value: append([]byte(nil), entry.Value...)}
	if entry.Deadline != nil {
		d := *entry.Deadline
		out.Deadline = &d
	}
	return out, true
}

// Len returns the number of stored entries
func (s *Memory) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.data)
		sh.mu.RUnlock()
	}
	return n
}

// AddObserver adds a storage observer
func (s *Memory) AddObserver(observer Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// Close drops all entries
func (s *Memory) Close() error {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.data = make(map[string]*Entry)
		sh.mu.Unlock()
	}
	return nil
}
