// Package local implements the credential backend contract against a
// bun-managed accounts table: bcrypt password verification, HMAC-signed
// access tokens, and an in-process session-change stream. It stands in for
// the hosted identity service in development, examples, and tests.
package local
