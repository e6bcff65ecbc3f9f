// Package common defines sentinel errors shared by the auth, store and
// session layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Validation / input errors.
	ErrValidation = errors.New("validation error")

	// Lookup errors (unknown user, collection or chart).
	ErrNotFound = errors.New("not found")

	// Auth-specific errors. The UI maps ErrNotFound, ErrInvalidCredentials
	// and ErrNoPasswordSet onto a single generic message; the distinction
	// only exists internally.
	ErrNoPasswordSet      = errors.New("no password set")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	// Storage errors. Writes that fail are logged and swallowed at the
	// session layer; ErrStorage is only returned where the caller must
	// know the mutation was not persisted (e.g. createUser).
	ErrStorage = errors.New("storage failure")
)
