package dirs

import "errors"

// Sentinel errors for directory allocation.
var (
	// ErrTooManyCollisions indicates MaxProbes candidates were all owned
	// by other identities. With a sound hash this means something is wrong.
	ErrTooManyCollisions = errors.New("dirs: too many hash collisions")

	// ErrNilFilesystem indicates a nil filesystem was provided.
	ErrNilFilesystem = errors.New("dirs: filesystem is nil")

	// ErrEmptyIdentity indicates an empty identity string.
	ErrEmptyIdentity = errors.New("dirs: identity is empty")

	// errMarkerPending means a marker exists but its writer has not
	// finished. It is retried and never returned to callers.
	errMarkerPending = errors.New("dirs: marker not written yet")

	// errMarkerAbandoned means a marker stayed missing or empty past the
	// stale limit.
	errMarkerAbandoned = errors.New("dirs: marker abandoned")
)
