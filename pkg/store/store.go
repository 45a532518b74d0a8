// Package store provides a generic, thread-safe, in-memory table keyed by
// sequential integer IDs, plus a simulated clock. The JWT Pizza twin keeps
// users, franchises, stores and orders in it.
package store

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"
)

// Store is a thread-safe in-memory table of T keyed by integer ID.
// Listing follows insertion order.
type Store[T any] struct {
	mu    sync.RWMutex
	items map[int]T
	order []int
	last  int
}

// New creates an empty store. The first allocated ID is 1.
func New[T any]() *Store[T] {
	return &Store[T]{items: make(map[int]T)}
}

// NextID reserves the next sequential ID.
func (s *Store[T]) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

// Insert allocates an ID, builds the item with it and stores the result.
func (s *Store[T]) Insert(build func(id int) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	item := build(s.last)
	s.items[s.last] = item
	s.order = append(s.order, s.last)
	return item
}

// InsertUnless is Insert guarded by conflict: when any stored item matches,
// nothing is allocated and ok is false. The check and the insert share one
// write lock.
func (s *Store[T]) InsertUnless(conflict func(item T) bool, build func(id int) T) (item T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if conflict(s.items[id]) {
			return item, false
		}
	}
	s.last++
	item = build(s.last)
	s.items[s.last] = item
	s.order = append(s.order, s.last)
	return item, true
}

// Set stores an item under id. Overwriting keeps the original position.
// Later allocations never reuse an ID at or below id.
func (s *Store[T]) Set(id int, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = item
	if id > s.last {
		s.last = id
	}
}

// Get returns the item stored under id.
func (s *Store[T]) Get(id int) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Update applies fn to the item under id while holding the write lock.
// It reports whether the item existed.
func (s *Store[T]) Update(id int, fn func(item *T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return false
	}
	fn(&item)
	s.items[id] = item
	return true
}

// Delete removes the item under id and reports whether it existed.
func (s *Store[T]) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return false
	}
	delete(s.items, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

// List returns all items in insertion order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Filter returns the items matching keep, in insertion order.
func (s *Store[T]) Filter(keep func(item T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0)
	for _, id := range s.order {
		if keep(s.items[id]) {
			out = append(out, s.items[id])
		}
	}
	return out
}

// Find returns the first item matching keep.
func (s *Store[T]) Find(keep func(item T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if keep(s.items[id]) {
			return s.items[id], true
		}
	}
	var zero T
	return zero, false
}

// Count returns the number of stored items.
func (s *Store[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Reset clears all items and restarts IDs at 1.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[int]T)
	s.order = nil
	s.last = 0
}

// Snapshot returns a copy of all items keyed by ID.
func (s *Store[T]) Snapshot() map[int]T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.items)
}

// LoadSnapshot replaces the table. Order follows ascending ID and the ID
// counter continues after the highest loaded ID.
func (s *Store[T]) LoadSnapshot(snapshot map[int]T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = maps.Clone(snapshot)
	if s.items == nil {
		s.items = make(map[int]T)
	}
	s.order = make([]int, 0, len(s.items))
	for id := range s.items {
		s.order = append(s.order, id)
	}
	slices.Sort(s.order)
	s.last = 0
	if len(s.order) > 0 {
		s.last = s.order[len(s.order)-1]
	}
}

// MarshalJSON encodes the table as an object keyed by ID.
func (s *Store[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON replaces the table from an object keyed by ID.
func (s *Store[T]) UnmarshalJSON(data []byte) error {
	var snapshot map[int]T
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	s.LoadSnapshot(snapshot)
	return nil
}
