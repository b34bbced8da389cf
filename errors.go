package session

import (
	"github.com/goliatone/go-errors"
)

// ErrSubmissionInFlight is returned when a form submission starts while a
// previous one has not yet settled.
var ErrSubmissionInFlight = errors.New("submission already in flight", errors.CategoryOperation).
	WithTextCode("SUBMISSION_IN_FLIGHT").
	WithCode(errors.CodeConflict)

// ErrNoCurrentIdentity is returned by operations that require an
// authenticated session when none exists.
var ErrNoCurrentIdentity = errors.New("no identity is currently signed in", errors.CategoryAuth).
	WithTextCode("NO_CURRENT_IDENTITY").
	WithCode(errors.CodeUnauthorized)

// ErrProfileNotFound is the error for identities without a profile record.
var ErrProfileNotFound = errors.New("profile not found", errors.CategoryNotFound).
	WithTextCode("PROFILE_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrSynchronizerClosed is returned by operations on a torn-down Synchronizer.
var ErrSynchronizerClosed = errors.New("synchronizer is closed", errors.CategoryOperation).
	WithTextCode("SYNCHRONIZER_CLOSED")
