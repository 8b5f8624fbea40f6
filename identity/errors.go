package identity

import "errors"

// Sentinel errors for identity resolution.
var (
	// ErrNotFunc indicates the value passed to Of is not a non-nil func.
	ErrNotFunc = errors.New("identity: value is not a function")

	// ErrNoCallSite indicates every frame on the stack belongs to this
	// module's own sources, so there is no registering caller to name.
	ErrNoCallSite = errors.New("identity: no call site outside filememo")

	// ErrEmptyName indicates Named was called with an empty name.
	ErrEmptyName = errors.New("identity: name is empty")
)
