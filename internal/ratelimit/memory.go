package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory.
// Lookups go through sync.Map; each entry carries its own mutex so concurrent
// requests from one client never lose an increment and different clients never
// contend.
type MemoryStore struct {
	entries sync.Map // map[string]*memoryEntry
}

type memoryEntry struct {
	mu      sync.Mutex
	entry   Entry
	removed bool // set by Sweep once the entry is no longer in the map
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Take applies the fixed-window rule to key.
func (s *MemoryStore) Take(_ context.Context, key string, now time.Time, policy Policy) (Decision, error) {
	for {
		v, _ := s.entries.LoadOrStore(key, &memoryEntry{})
		e := v.(*memoryEntry)

		e.mu.Lock()
		if e.removed {
			// Swept between LoadOrStore and Lock; retry against the fresh entry.
			e.mu.Unlock()
			continue
		}
		d := apply(&e.entry, now, policy)
		e.mu.Unlock()
		return d, nil
	}
}

// Sweep deletes entries whose window has ended.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0
	s.entries.Range(func(k, v any) bool {
		e := v.(*memoryEntry)
		e.mu.Lock()
		if now.After(e.entry.ResetAt) && s.entries.CompareAndDelete(k, v) {
			e.removed = true
			removed++
		}
		e.mu.Unlock()
		return true
	})
	return removed, nil
}

// Len returns the number of tracked client keys.
func (s *MemoryStore) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Get returns a copy of the entry for key.
func (s *MemoryStore) Get(key string) (Entry, bool) {
	v, ok := s.entries.Load(key)
	if !ok {
		return Entry{}, false
	}
	e := v.(*memoryEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entry, true
}
