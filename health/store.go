package health

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/filememo/record"
)

// StoreChecker round-trips a probe record through a record store.
type StoreChecker struct {
	name  string
	store record.Store
}

// NewStoreChecker creates a checker for store, reported under name.
func NewStoreChecker(name string, store record.Store) *StoreChecker {
	if name == "" {
		name = "record_store"
	}
	return &StoreChecker{name: name, store: store}
}

// Name returns the name of this checker.
func (s *StoreChecker) Name() string {
	return s.name
}

// Check writes, reads, and deletes a probe record. A failed delete only
// degrades the result.
func (s *StoreChecker) Check(ctx context.Context) Result {
	return timed(func() Result {
		if s.store == nil {
			return Unhealthy("no store", ErrNilStore)
		}

		key := []byte("health-probe/" + uuid.NewString())
		value := []byte(time.Now().UTC().Format(time.RFC3339Nano))

		if err := s.store.Set(ctx, key, value, time.Minute); err != nil {
			return Unhealthy("store write failed", fmt.Errorf("%w: %w", ErrCheckFailed, err))
		}
		rec, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return Unhealthy("store read failed", fmt.Errorf("%w: %w", ErrCheckFailed, err))
		}
		if !ok || !bytes.Equal(rec.Value, value) {
			return Unhealthy("probe record lost", ErrProbeMismatch)
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return Degraded("probe record not removed").WithDetails(map[string]any{"error": err.Error()})
		}
		return Healthy("store round trip ok")
	})
}

var _ Checker = (*StoreChecker)(nil)
