package session_test

import (
	"context"
	"sync"

	session "github.com/snaplearn/go-session"
)

// fakeBackend is a scriptable CredentialBackend. Emit drives the
// session-change stream the way a hosted identity service would.
type fakeBackend struct {
	mu sync.Mutex

	registerCalls []registerCall
	signInCalls   []signInCall
	signOutCalls  int
	currentCalls  int

	registerErr error
	signInErr   error
	signOutErr  error
	currentErr  error

	identity *session.Identity
	current  *session.BackendSession

	// when true, SignOut emits a nil session the way the local provider
	// does; leave false to drive the stream manually with Emit.
	signOutEmits bool

	nextID    int
	order     []int
	listeners map[int]func(*session.BackendSession)
}

type registerCall struct {
	email    string
	password string
	metadata session.RegistrationMetadata
}

type signInCall struct {
	email    string
	password string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		listeners: map[int]func(*session.BackendSession){},
	}
}

func (f *fakeBackend) RegisterWithPassword(ctx context.Context, email, password string, metadata session.RegistrationMetadata) (*session.Identity, error) {
	f.mu.Lock()
	f.registerCalls = append(f.registerCalls, registerCall{email, password, metadata})
	err := f.registerErr
	identity := f.identity
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (f *fakeBackend) SignInWithPassword(ctx context.Context, email, password string) (*session.Identity, error) {
	f.mu.Lock()
	f.signInCalls = append(f.signInCalls, signInCall{email, password})
	err := f.signInErr
	identity := f.identity
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (f *fakeBackend) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	err := f.signOutErr
	emits := f.signOutEmits
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if emits {
		f.Emit(nil)
	}
	return nil
}

func (f *fakeBackend) CurrentSession(ctx context.Context) (*session.BackendSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentCalls++
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	return f.current, nil
}

func (f *fakeBackend) OnSessionChange(fn func(*session.BackendSession)) session.Unsubscribe {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.order = append(f.order, id)
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

// Emit delivers a session-change event to every subscriber.
func (f *fakeBackend) Emit(sess *session.BackendSession) {
	f.mu.Lock()
	snapshot := make([]func(*session.BackendSession), 0, len(f.order))
	for _, id := range f.order {
		if fn, ok := f.listeners[id]; ok {
			snapshot = append(snapshot, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range snapshot {
		fn(sess)
	}
}

func (f *fakeBackend) SignInCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.signInCalls)
}

func (f *fakeBackend) RegisterCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registerCalls)
}

// fakeProfiles is a scriptable ProfileStore. When gate is non-nil every
// fetch blocks until a value is sent, which lets tests order async
// resolutions deterministically.
type fakeProfiles struct {
	mu       sync.Mutex
	records  map[string]*session.Profile
	err      error
	gate     chan struct{}
	fetches  []string
	updates  []string
	updErr   error
	updCalls []session.ProfileUpdate
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		records: map[string]*session.Profile{},
	}
}

func (f *fakeProfiles) FetchProfile(ctx context.Context, identityID string) (*session.Profile, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, identityID)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	record, ok := f.records[identityID]
	if !ok {
		return nil, session.ErrProfileNotFound
	}
	return record, nil
}

func (f *fakeProfiles) UpdateProfile(ctx context.Context, identityID string, update session.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, identityID)
	f.updCalls = append(f.updCalls, update)
	return f.updErr
}

func (f *fakeProfiles) FetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

// stateRecorder collects every state a store subscription observes.
type stateRecorder struct {
	mu     sync.Mutex
	states []session.State
}

func (r *stateRecorder) Listener() session.Listener {
	return func(state session.State) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.states = append(r.states, state)
	}
}

func (r *stateRecorder) States() []session.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.State, len(r.states))
	copy(out, r.states)
	return out
}

func (r *stateRecorder) Last() (session.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return session.State{}, false
	}
	return r.states[len(r.states)-1], true
}
