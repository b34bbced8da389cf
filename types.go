package session

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Identity is the authenticated principal record returned by the
// credential backend. The id is opaque to this package.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// BackendSession is the point-in-time session reported by the credential
// backend, either from the change stream or from a one-shot retrieval.
type BackendSession struct {
	Identity    *Identity  `json:"identity,omitempty"`
	AccessToken string     `json:"access_token,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// RegistrationMetadata travels with register calls and seeds the new
// account's profile record.
type RegistrationMetadata struct {
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Unsubscribe releases a subscription. Safe to call more than once.
type Unsubscribe func()

// CredentialBackend is the hosted identity service contract. Implementations
// own session persistence; this package never stores credentials.
type CredentialBackend interface {
	RegisterWithPassword(ctx context.Context, email, password string, metadata RegistrationMetadata) (*Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*BackendSession, error)
	OnSessionChange(fn func(*BackendSession)) Unsubscribe
}

// ProfileStore retrieves the application profile keyed by identity id.
type ProfileStore interface {
	FetchProfile(ctx context.Context, identityID string) (*Profile, error)
}

// ProfileUpdater is an optional extension of ProfileStore. When the store
// the Synchronizer was built with implements it, Synchronizer.UpdateProfile
// becomes available.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, identityID string, update ProfileUpdate) error
}

// NewDefaultLogger returns the stdout fallback logger used when no logger
// is injected.
func NewDefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
