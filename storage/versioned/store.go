// Package versioned implements a lock-free, optimistically-versioned
// key-value store. Grounded on
// original_source/llmspell-kernel/src/state/performance/lockfree_agent.rs
// (a SkipMap-backed store with a global atomic version counter and a
// bounded CAS retry loop); Go has no lock-free skip list in the standard
// library, so this uses sync.Map (itself lock-free on the read path) plus
// sync.Map.CompareAndSwap for the write path, preserving the same
// read-without-locks / optimistic-retry-on-write semantics.
package versioned

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Entry is a versioned value: every successful update bumps Version using
// a store-global counter, so versions are comparable across different keys
// too (useful for "has anything changed since I last looked" checks).
type Entry struct {
	Value        any
	Version      uint64
	LastModified time.Time
}

// UpdateFunc computes the next value given the current one (nil if absent).
// It must be pure: it may be invoked multiple times under contention before
// a CAS succeeds.
type UpdateFunc func(current any, ok bool) (any, error)

const maxRetries = 10

// Store is a lock-free versioned key-value store.
type Store struct {
	entries sync.Map // key string -> *Entry
	counter atomic.Uint64
}

// New builds an empty Store.
func New() *Store { return &Store{} }

// Get returns the current entry for key without taking any lock.
func (s *Store) Get(key string) (Entry, bool) {
	v, ok := s.entries.Load(key)
	if !ok {
		return Entry{}, false
	}
	return *v.(*Entry), true
}

// Update applies fn to the current value of key and publishes the result,
// retrying under contention up to maxRetries times if a concurrent writer
// wins the race. Returns the entry that was actually published.
func (s *Store) Update(key string, fn UpdateFunc) (Entry, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		var current any
		var ok bool
		old, loaded := s.entries.Load(key)
		if loaded {
			current = old.(*Entry).Value
			ok = true
		}

		next, err := fn(current, ok)
		if err != nil {
			return Entry{}, err
		}

		newEntry := &Entry{
			Value:        next,
			Version:      s.counter.Add(1),
			LastModified: time.Now(),
		}

		if !loaded {
			if _, wasLoaded := s.entries.LoadOrStore(key, newEntry); !wasLoaded {
				return *newEntry, nil
			}
			// Someone else inserted first; retry against the real current value.
			continue
		}

		if s.entries.CompareAndSwap(key, old, newEntry) {
			return *newEntry, nil
		}
		// Lost the race: another writer updated key between our Load and
		// our CompareAndSwap. Back off briefly and retry against the new
		// current value.
		runtime.Gosched()
	}
	return Entry{}, fmt.Errorf("versioned: update on %q failed after %d retries", key, maxRetries)
}

// Delete removes key unconditionally.
func (s *Store) Delete(key string) {
	s.entries.Delete(key)
}

// Keys returns all keys currently present. Order is unspecified.
func (s *Store) Keys() []string {
	var keys []string
	s.entries.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}

// Len returns the number of entries currently stored.
func (s *Store) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool { n++; return true })
	return n
}
