package local

import (
	"github.com/goliatone/go-errors"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike; sign-in never reveals which one failed.
var ErrInvalidCredentials = errors.New("Invalid login credentials", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(errors.CodeUnauthorized)

// ErrEmailTaken is returned when registering an email that already has an
// account.
var ErrEmailTaken = errors.New("User already registered", errors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(errors.CodeConflict)

// ErrNoEmptyString rejects empty emails and passwords before any hashing.
var ErrNoEmptyString = errors.New("value should not be an empty string", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)
