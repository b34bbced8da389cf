package session

import (
	"sync"
)

// State is the composite observable session state exposed to consumers.
// Profile is non-nil only while Identity is non-nil; Identity may be
// non-nil with a nil Profile while the profile is still being fetched.
type State struct {
	Identity *Identity
	Profile  *Profile
	Loading  bool
}

// Listener receives every state change after the point of subscription.
// Past states are never replayed.
type Listener func(State)

// Store holds the single session value for the life of the process and
// notifies subscribers of changes in subscription order. It performs no
// I/O; only the Synchronizer mutates it.
type Store struct {
	mu        sync.Mutex
	state     State
	nextID    int
	order     []int
	listeners map[int]Listener
	logger    Logger
}

type StoreOption func(*Store)

// WithStoreLogger overrides the store's logger.
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns a store in the initial resolving state: no identity,
// no profile, loading until the Synchronizer delivers a first result.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state:     State{Loading: true},
		listeners: map[int]Listener{},
		logger:    defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Current returns a snapshot of the session state. No side effects.
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener for future state changes and returns its
// unsubscribe handle. Callers must release the handle on teardown.
func (s *Store) Subscribe(fn Listener) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.listeners[id]; !ok {
			return
		}
		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// update applies a partial change and notifies subscribers synchronously,
// in the order they registered. Listeners always observe a complete state,
// never a torn one.
func (s *Store) update(apply func(*State)) {
	s.mu.Lock()
	apply(&s.state)
	state := s.state
	snapshot := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range snapshot {
		fn(state)
	}
}
