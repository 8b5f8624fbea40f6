package record

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Record
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock used to stamp records.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the record under key. Expired records are dropped lazily.
func (s *MemoryStore) Get(_ context.Context, key []byte) (Record, bool, error) {
	if err := ValidateKey(key); err != nil {
		return Record{}, false, err
	}

	s.mu.RLock()
	rec, ok := s.entries[string(key)]
	s.mu.RUnlock()
	if !ok {
		return Record{}, false, nil
	}

	if rec.Expired(s.now()) {
		s.mu.Lock()
		delete(s.entries, string(key))
		s.mu.Unlock()
		return Record{}, false, nil
	}

	rec.Value = append([]byte(nil), rec.Value...)
	return rec, true, nil
}

// Set stores a copy of value under key.
func (s *MemoryStore) Set(_ context.Context, key, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = NoExpiry
	}

	s.mu.Lock()
	s.entries[string(key)] = Record{
		Value:     append([]byte(nil), value...),
		CreatedAt: s.now(),
		TTL:       ttl,
	}
	s.mu.Unlock()
	return nil
}

// Delete removes the record under key. Idempotent.
func (s *MemoryStore) Delete(_ context.Context, key []byte) error {
	s.mu.Lock()
	delete(s.entries, string(key))
	s.mu.Unlock()
	return nil
}

// Clear removes every record.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]Record)
	s.mu.Unlock()
	return nil
}

// Len returns the number of records held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
