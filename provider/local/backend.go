package local

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	session "github.com/snaplearn/go-session"
)

// Backend is a CredentialBackend over a bun database. It owns session
// persistence for the process: the current session lives here, and every
// sign-in/out is broadcast to OnSessionChange subscribers.
type Backend struct {
	db       *bun.DB
	cfg      Config
	accounts Accounts
	profiles session.Profiles
	logger   session.Logger

	mu        sync.Mutex
	current   *session.BackendSession
	nextID    int
	order     []int
	listeners map[int]func(*session.BackendSession)
}

var _ session.CredentialBackend = (*Backend)(nil)

type BackendOption func(*Backend)

// WithLogger overrides the backend's logger.
func WithLogger(logger session.Logger) BackendOption {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithAccountsRepository overrides the accounts repository.
func WithAccountsRepository(repo Accounts) BackendOption {
	return func(b *Backend) {
		if repo != nil {
			b.accounts = repo
		}
	}
}

// WithProfilesRepository overrides the profiles repository used to seed
// profile rows at registration.
func WithProfilesRepository(repo session.Profiles) BackendOption {
	return func(b *Backend) {
		if repo != nil {
			b.profiles = repo
		}
	}
}

// NewBackend returns a Backend with no active session.
func NewBackend(db *bun.DB, cfg Config, opts ...BackendOption) *Backend {
	b := &Backend{
		db:        db,
		cfg:       cfg,
		accounts:  NewAccountsRepository(db),
		profiles:  session.NewProfilesRepository(db),
		logger:    session.NewDefaultLogger(),
		listeners: map[int]func(*session.BackendSession){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// RegisterWithPassword creates an account and its profile row in one
// transaction. Registration does not establish a session; the caller signs
// in afterwards.
func (b *Backend) RegisterWithPassword(ctx context.Context, email, password string, metadata session.RegistrationMetadata) (*session.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrNoEmptyString
	}

	if _, err := b.accounts.ByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Email:        email,
		DisplayName:  displayName(metadata, email),
		PasswordHash: hash,
	}

	if id, err := hashid.NewUUID(email); err == nil {
		account.ID = id
	} else {
		account.ID = uuid.New()
	}

	err = b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := b.accounts.CreateTx(ctx, tx, account); err != nil {
			return errors.Wrap(err, errors.CategoryConflict, "User already registered")
		}

		profile := &session.Profile{
			ID:       account.ID,
			Username: usernameFor(metadata.Username, email),
			FullName: metadata.FullName,
		}
		if _, err := b.profiles.SeedTx(ctx, tx, profile); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "could not seed profile")
		}

		return nil
	})

	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "registration failed")
	}

	return b.identityFor(account), nil
}

// SignInWithPassword verifies the credentials, mints an access token, and
// broadcasts the new session.
func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*session.Identity, error) {
	account, err := b.accounts.ByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	token, expiresAt, err := b.mintAccessToken(account, now)
	if err != nil {
		b.logger.Error("token mint failed", "account", account.ID.String(), "error", err)
		return nil, err
	}

	identity := b.identityFor(account)
	sess := &session.BackendSession{
		Identity:    identity,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}

	b.setCurrent(sess)

	return identity, nil
}

// SignOut ends the current session and broadcasts the change. Signing out
// without a session is a no-op.
func (b *Backend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	hadSession := b.current != nil
	b.mu.Unlock()

	if !hadSession {
		return nil
	}

	b.setCurrent(nil)
	return nil
}

// CurrentSession returns the point-in-time session, nil when signed out.
func (b *Backend) CurrentSession(ctx context.Context) (*session.BackendSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return nil, nil
	}

	copied := *b.current
	return &copied, nil
}

// OnSessionChange registers a callback for sign-in/out transitions,
// starting from the next one. Callbacks run on the caller of the
// transition, in registration order.
func (b *Backend) OnSessionChange(fn func(*session.BackendSession)) session.Unsubscribe {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.listeners[id]; !ok {
			return
		}
		delete(b.listeners, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *Backend) setCurrent(sess *session.BackendSession) {
	b.mu.Lock()
	b.current = sess
	snapshot := make([]func(*session.BackendSession), 0, len(b.order))
	for _, id := range b.order {
		snapshot = append(snapshot, b.listeners[id])
	}
	b.mu.Unlock()

	for _, fn := range snapshot {
		fn(sess)
	}
}

func (b *Backend) identityFor(account *Account) *session.Identity {
	return &session.Identity{
		ID:          account.ID.String(),
		Email:       account.Email,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
	}
}

func displayName(metadata session.RegistrationMetadata, email string) string {
	if metadata.FullName != "" {
		return metadata.FullName
	}
	return usernameFor(metadata.Username, email)
}

func usernameFor(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
