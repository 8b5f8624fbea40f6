package memo

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for wrapping.
var (
	// ErrNilFunc indicates a nil function was passed to Wrap.
	ErrNilFunc = errors.New("memo: function is nil")

	// ErrIdentity indicates the function's identity could not be resolved.
	ErrIdentity = errors.New("memo: cannot resolve function identity")

	// ErrLossyType indicates a key or result whose encoding would drop
	// fields, such as unexported or "-"-tagged ones.
	ErrLossyType = errors.New("memo: type does not survive encoding")
)

// FunctionError is returned for every failure of a memoized function,
// whether it just happened or was replayed from the cache.
type FunctionError struct {
	// Func is the qualified name of the memoized function.
	Func string

	// Err is the function's error. Replayed errors are *StoredError
	// unless an ErrorDecoder rehydrated them.
	Err error
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("memo: %s: %v", e.Func, e.Err)
}

func (e *FunctionError) Unwrap() error { return e.Err }

// StoredError is an error read back from the cache.
type StoredError struct {
	// Type is the Go type of the original error, as printed by %T.
	Type string `json:"type" msgpack:"type"`

	// Message is the original error's text.
	Message string `json:"message" msgpack:"message"`
}

func (e *StoredError) Error() string { return e.Message }

// Is matches another StoredError with the same type and message, or a
// live error of the recorded type with the same text. A sentinel returned
// directly by the function therefore still matches errors.Is after a
// replay; wrapped sentinels need an ErrorDecoder.
func (e *StoredError) Is(target error) bool {
	if t, ok := target.(*StoredError); ok {
		return t.Type == e.Type && t.Message == e.Message
	}
	return target != nil && fmt.Sprintf("%T", target) == e.Type && target.Error() == e.Message
}

// ErrorDecoder turns a stored error back into a live one.
// Returning nil keeps the StoredError.
type ErrorDecoder func(stored *StoredError) error

// SentinelDecoder returns a decoder that maps stored messages back to the
// sentinel with the same text, so errors.Is keeps working across replays.
func SentinelDecoder(sentinels ...error) ErrorDecoder {
	byMsg := make(map[string]error, len(sentinels))
	for _, s := range sentinels {
		if s != nil {
			byMsg[s.Error()] = s
		}
	}
	return func(stored *StoredError) error {
		return byMsg[stored.Message]
	}
}

func storedFrom(err error) *StoredError {
	return &StoredError{Type: fmt.Sprintf("%T", err), Message: err.Error()}
}

// isTermination reports errors that must reach the caller untouched and
// never be stored.
func isTermination(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
