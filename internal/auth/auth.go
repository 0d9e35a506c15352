// Package auth provides JWT-based identity for the HTTP surface. Every stored
// entity is scoped to the authenticated user's id; no operation may cross
// ownership. There is no unauthenticated mode: a service built without a
// signing secret fails every call rather than waving requests through.
package auth

import "errors"

var (
	// ErrNoSecret means the service was built without a signing secret.
	// Startup validation should have caught this; it is never a caller error.
	ErrNoSecret = errors.New("auth: signing secret not configured")

	// ErrInvalidToken covers every token rejection: bad signature, wrong
	// issuer, expired, malformed, or missing subject.
	ErrInvalidToken = errors.New("auth: invalid token")
)
