// Package store owns the live budget snapshot. All mutation goes through
// Dispatch, which runs the reducer under a single lock; observers receive
// every committed snapshot and drive persistence and remote sync.
package store

import (
	"reflect"
	"sync"
	"time"

	"budgetd/internal/core"
)

// Observer receives a committed snapshot together with its revision.
type Observer func(state core.BudgetState, revision int64)

// Store is the single writer for budget state. The zero value is not usable;
// construct with New.
type Store struct {
	mu        sync.Mutex
	state     core.BudgetState
	revision  int64
	nextSubID int
	observers map[int]Observer

	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock substitutes the time source, used by tests for deterministic
// LastUpdated stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New builds a store seeded with initial state at revision 0.
func New(initial core.BudgetState, opts ...Option) *Store {
	s := &Store{
		state:     initial,
		observers: make(map[int]Observer),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() core.BudgetState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Revision returns the current revision number. It increases by one per
// committed change and never decreases.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Dispatch applies an action through the reducer. A rejected or no-op action
// commits nothing and notifies nobody. It reports whether state changed.
func (s *Store) Dispatch(action core.Action) bool {
	s.mu.Lock()
	now := s.clock()
	next := core.Reduce(s.state, action, now)
	if reflect.DeepEqual(next, s.state) {
		s.mu.Unlock()
		return false
	}
	s.commitLocked(next)
	return true
}

// Replace swaps in a snapshot wholesale, bypassing the reducer. Used for
// hydration from the remote document, where the incoming state wins as-is.
func (s *Store) Replace(state core.BudgetState) {
	s.mu.Lock()
	if reflect.DeepEqual(state, s.state) {
		s.mu.Unlock()
		return
	}
	s.commitLocked(state)
}

// Reset swaps in the default empty state immediately.
func (s *Store) Reset() {
	s.mu.Lock()
	s.commitLocked(core.DefaultState(s.clock()))
}

// commitLocked stores next, bumps the revision and notifies observers. The
// lock must be held on entry; it is released before observers run so they
// may call back into the store.
func (s *Store) commitLocked(next core.BudgetState) {
	s.state = next
	s.revision++
	rev := s.revision
	obs := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	s.mu.Unlock()

	for _, o := range obs {
		o(next, rev)
	}
}

// Subscribe registers an observer for future commits and returns its
// unsubscribe function.
func (s *Store) Subscribe(o Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.observers[id] = o
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}
