package sync

import "errors"

var (
	// ErrNotConfigured means the remote backend has no credentials.
	// Every sync operation short-circuits with it, doing no partial
	// work.
	ErrNotConfigured = errors.New("remote backend is not configured")

	// ErrNotAuthenticated means no user is signed in. Same
	// short-circuit behavior as ErrNotConfigured.
	ErrNotAuthenticated = errors.New("no authenticated user")
)
