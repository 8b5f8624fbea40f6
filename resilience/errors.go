package resilience

import "errors"

// ErrMaxRetriesExceeded wraps the last error once every attempt failed.
var ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Execute returns it immediately.
// Execute unwraps it before returning.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
