package session

import (
	"net/http"

	"github.com/goliatone/go-router"
)

// RequireSession encodes the consumer-side navigation contract for
// protected areas: when the session has resolved and no identity is
// present, the request is redirected to the sign-in area. While the
// initial resolution is still loading the request passes through, so
// consumers can render their own pending state.
func RequireSession(store *Store, signInPath string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			state := store.Current()
			if !state.Loading && state.Identity == nil {
				return c.Redirect(signInPath, redirectStatus(c))
			}
			return next(c)
		}
	}
}

// RedirectAuthenticated is the sign-in area counterpart: once the session
// has resolved with an identity, the request is redirected to the
// authenticated area.
func RedirectAuthenticated(store *Store, homePath string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			state := store.Current()
			if !state.Loading && state.Identity != nil {
				return c.Redirect(homePath, redirectStatus(c))
			}
			return next(c)
		}
	}
}

func redirectStatus(c router.Context) int {
	if c.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
