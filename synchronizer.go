package session

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultProfileFetchTimeout bounds a single profile read.
var DefaultProfileFetchTimeout = 10 * time.Second

// Synchronizer bridges the credential backend's event stream into the
// Store and resolves profiles. It is the only component allowed to
// mutate the Store.
//
// On construction it registers one subscription with the backend's
// session-change stream and separately issues one retrieval of any
// pre-existing session. The two sources may race; whichever lands first
// ends the loading phase, and every later event transitions the session
// between authenticated and unauthenticated.
type Synchronizer struct {
	backend      CredentialBackend
	profiles     ProfileStore
	store        *Store
	logger       Logger
	fetchTimeout time.Duration

	// mu serializes every state application, including the stale-guard
	// check, so profile results can never land against a superseded
	// identity.
	mu       sync.Mutex
	closed   bool
	resolved bool
	unsub    Unsubscribe
}

type SynchronizerOption func(*Synchronizer)

// WithSynchronizerLogger overrides the synchronizer's logger.
func WithSynchronizerLogger(logger Logger) SynchronizerOption {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProfileFetchTimeout bounds each profile read.
func WithProfileFetchTimeout(d time.Duration) SynchronizerOption {
	return func(s *Synchronizer) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// NewSynchronizer wires the backend to the store and starts the initial
// session resolution. Callers must Close the synchronizer on teardown.
func NewSynchronizer(backend CredentialBackend, profiles ProfileStore, store *Store, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		backend:      backend,
		profiles:     profiles,
		store:        store,
		logger:       defLogger{},
		fetchTimeout: DefaultProfileFetchTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.unsub = backend.OnSessionChange(s.handleSessionChange)

	go s.resolveInitial()

	return s
}

// Close tears the synchronizer down: the backend subscription is released
// and any in-flight result that resolves later is dropped without effect.
// In-flight backend calls are not cancelled. Idempotent.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsub
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// SignOut asks the backend to end the session and, once that succeeds,
// clears the profile without waiting for the session-change event. A backend
// failure leaves the state untouched. The identity itself is cleared by the
// resulting session-change event, not here.
func (s *Synchronizer) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSynchronizerClosed
	}
	s.mu.Unlock()

	if err := s.backend.SignOut(ctx); err != nil {
		s.logger.Error("sign out failed", "error", err)
		return errors.Wrap(err, errors.CategoryAuth, "sign out failed")
	}

	s.mu.Lock()
	if !s.closed {
		s.store.update(func(st *State) {
			st.Profile = nil
		})
	}
	s.mu.Unlock()

	return nil
}

// Refresh re-fetches the profile for the current identity. This is the
// explicit retry path; failed automatic fetches are never retried.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	current := s.store.Current()
	if current.Identity == nil {
		return ErrNoCurrentIdentity
	}

	return s.fetchProfile(ctx, current.Identity.ID)
}

// UpdateProfile mutates the current identity's profile and re-fetches it so
// the change flows through the store. It requires a signed-in identity and
// a ProfileStore that implements ProfileUpdater.
func (s *Synchronizer) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	current := s.store.Current()
	if current.Identity == nil {
		return ErrNoCurrentIdentity
	}

	updater, ok := s.profiles.(ProfileUpdater)
	if !ok {
		return errors.New("profile store does not support updates", errors.CategoryOperation).
			WithTextCode("PROFILE_UPDATES_UNSUPPORTED")
	}

	if update.IsZero() {
		return nil
	}

	if err := updater.UpdateProfile(ctx, current.Identity.ID, update); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "profile update failed")
	}

	return s.fetchProfile(ctx, current.Identity.ID)
}

func (s *Synchronizer) resolveInitial() {
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	sess, err := s.backend.CurrentSession(ctx)
	if err != nil {
		// A failed retrieval must not leave the session stuck loading;
		// resolve to unauthenticated and let the change stream correct us.
		s.logger.Error("initial session retrieval failed", "error", err)
		s.apply(nil, true)
		return
	}

	s.apply(sess, true)
}

func (s *Synchronizer) handleSessionChange(sess *BackendSession) {
	s.apply(sess, false)
}

// apply installs a session-change result. The profile fetch is scheduled on
// its own goroutine so the backend's delivery callback returns before any
// profile I/O begins; fetching inline would re-enter the backend while it
// still holds its own locks.
//
// The initial retrieval is a point-in-time snapshot: it only counts while
// nothing else has resolved the session; once a change event has landed, a
// late snapshot is stale and is dropped.
func (s *Synchronizer) apply(sess *BackendSession, initial bool) {
	s.mu.Lock()

	if s.closed || (initial && s.resolved) {
		s.mu.Unlock()
		return
	}
	s.resolved = true

	if sess == nil || sess.Identity == nil {
		s.store.update(func(st *State) {
			st.Identity = nil
			st.Profile = nil
			st.Loading = false
		})
		s.mu.Unlock()
		return
	}

	identity := *sess.Identity
	s.store.update(func(st *State) {
		if st.Identity == nil || st.Identity.ID != identity.ID {
			st.Profile = nil
		}
		st.Identity = &identity
		st.Loading = false
	})
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		defer cancel()

		if err := s.fetchProfile(ctx, identity.ID); err != nil {
			// A missing profile does not imply a missing session; the
			// identity stays signed in with a nil profile.
			s.logger.Error("profile fetch failed", "identity", identity.ID, "error", err)
		}
	}()
}

func (s *Synchronizer) fetchProfile(ctx context.Context, identityID string) error {
	profile, err := s.profiles.FetchProfile(ctx, identityID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	current := s.store.Current()
	if current.Identity == nil || current.Identity.ID != identityID {
		s.logger.Debug("discarding stale profile result", "identity", identityID)
		return nil
	}

	s.store.update(func(st *State) {
		st.Profile = profile
	})

	return nil
}
