package storage

import (
	"time"
)

// Store is the key space shared by every command execution
type Store interface {
	// Get returns the value stored under key. An entry whose deadline has
	// passed is reported as missing and removed.
	Get(key []byte) ([]byte, bool)

	// Set stores value under key, replacing any previous value and
	// deadline. A nil deadline means the entry never expires.
	Set(key, value []byte, deadline *time.Time)

	// Peek returns the raw entry under key without evaluating its deadline
	Peek(key []byte) (Entry, bool)

	// Len returns the number of entries held, expired or not
	Len() int

	// Close releases the store
	Close() error
}

// Observer receives notifications about key space events
type Observer interface {
	OnKeySet(key []byte)
	OnKeyExpired(key []byte)
}

// Entry is a stored value with an optional absolute deadline
type Entry struct {
	Value    []byte
	Deadline *time.Time
}

// ExpiredAt reports whether the entry's deadline has been reached at now
func (e *Entry) ExpiredAt(now time.Time) bool {
	return e.Deadline != nil && !now.Before(*e.Deadline)
}
