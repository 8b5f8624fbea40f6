package record

import (
	"context"
	"errors"
	"time"
)

// NoExpiry is the TTL for records that never expire.
const NoExpiry time.Duration = -1

// Sentinel errors for record operations.
var (
	ErrNilStore      = errors.New("record: store is nil")
	ErrInvalidKey    = errors.New("record: key is empty")
	ErrNilFilesystem = errors.New("record: filesystem is nil")
	ErrCorrupt       = errors.New("record: corrupt entry")
)

// Record is a stored value and its write metadata.
type Record struct {
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration
}

// Expired reports whether the record's own TTL has run out at now.
// A zero TTL expires immediately; a negative TTL never does.
func (r Record) Expired(now time.Time) bool {
	if r.TTL < 0 {
		return false
	}
	return r.TTL == 0 || now.Sub(r.CreatedAt) > r.TTL
}

// Store is the persistence contract the memoizer relies on.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation where they block on I/O.
// - Errors: Get returns (Record{}, false, nil) on a miss; an error means
// the store could not answer, and callers may treat it as a miss.
type Store interface {
	// Get returns the record stored under key.
	Get(ctx context.Context, key []byte) (Record, bool, error)

	// Set stores value under key, stamped with the current time.
	// A negative ttl means no expiry.
	Set(ctx context.Context, key, value []byte, ttl time.Duration) error

	// Delete removes the record under key. Idempotent.
	Delete(ctx context.Context, key []byte) error

	// Clear removes every record.
	Clear(ctx context.Context) error
}

// ValidateKey checks if a key is usable.
func ValidateKey(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	return nil
}
