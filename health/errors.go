package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrNilFilesystem indicates a DirChecker was built without a filesystem.
	ErrNilFilesystem = errors.New("health: filesystem is nil")

	// ErrNilStore indicates a StoreChecker was built without a store.
	ErrNilStore = errors.New("health: store is nil")

	// ErrProbeMismatch indicates a probe was read back with different content.
	ErrProbeMismatch = errors.New("health: probe read back differently")
)
