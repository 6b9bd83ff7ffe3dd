// Package keylock serializes work per key (a post or order id) inside one process.
package keylock

import (
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Set hands out one mutex per key. Entries are released once no goroutine holds
// or waits on them, so the map only grows with concurrently contended keys.
type Set struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

func New() *Set {
	return &Set{
		entries: make(map[uuid.UUID]*entry),
	}
}

// Lock blocks until the key is free and returns the matching unlock func.
func (s *Set) Lock(key uuid.UUID) func() {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		s.mu.Lock()
		defer s.mu.Unlock()
		e.refs--
		if e.refs == 0 {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of keys currently held or awaited.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
