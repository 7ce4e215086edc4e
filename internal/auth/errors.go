package auth

import "errors"

var (
	// ErrInvalidToken covers bad signature, malformed structure, expiry,
	// revocation and stale refresh tokens. Callers must not expose which
	// check failed.
	ErrInvalidToken = errors.New("auth: invalid token")

	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: forbidden")
	ErrNotFound        = errors.New("auth: not found")
	ErrConflict        = errors.New("auth: already exists")
	ErrInvalidInput    = errors.New("auth: invalid input")
)
