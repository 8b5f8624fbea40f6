package record

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"

	"github.com/jonwraymond/filememo/resilience"
)

const (
	// Ext is the suffix of record files. Nothing else in a cache
	// directory (the allocator's marker, temp files) carries it.
	Ext = ".rec"

	tempPrefix = ".tmp-"
)

// fileEntry is the on-disk form of a record.
type fileEntry struct {
	Version   int           `json:"version"`
	Key       []byte        `json:"key"`
	Value     []byte        `json:"value"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// DirStore keeps one file per key in a directory.
//
// Files are replaced atomically (write to a temp file, then rename), so
// concurrent writers never interleave and the last rename wins.
type DirStore struct {
	fs      billy.Filesystem
	version int
	now     func() time.Time
	retry   *resilience.Retry
}

// DirOption configures a DirStore.
type DirOption func(*DirStore)

// WithClock sets the clock used to stamp and expire records.
func WithClock(now func() time.Time) DirOption {
	return func(s *DirStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetry sets the retry policy for renames that lose a race.
func WithRetry(r *resilience.Retry) DirOption {
	return func(s *DirStore) {
		if r != nil {
			s.retry = r
		}
	}
}

// NewDirStore creates a store rooted at fsys. Records written with a
// different version read as absent.
func NewDirStore(fsys billy.Filesystem, version int, opts ...DirOption) (*DirStore, error) {
	if fsys == nil {
		return nil, ErrNilFilesystem
	}
	s := &DirStore{
		fs:      fsys,
		version: version,
		now:     time.Now,
		retry: resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  4,
			InitialDelay: 5 * time.Millisecond,
			Jitter:       true,
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Version returns the version records are written and read with.
func (s *DirStore) Version() int { return s.version }

// Root returns the directory the store writes into.
func (s *DirStore) Root() string { return s.fs.Root() }

// FileName returns the record file name for key.
func FileName(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:]) + Ext
}

// Get reads the record under key. Records from another version, records
// whose stored key differs (a file-name collision) and expired records
// read as absent; expired ones are removed.
func (s *DirStore) Get(ctx context.Context, key []byte) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	if err := ValidateKey(key); err != nil {
		return Record{}, false, err
	}

	name := FileName(key)
	entry, err := s.read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	if entry.Version != s.version || !bytes.Equal(entry.Key, key) {
		return Record{}, false, nil
	}

	rec := Record{Value: entry.Value, CreatedAt: entry.CreatedAt, TTL: entry.TTL}
	if rec.Expired(s.now()) {
		if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Record{}, false, fmt.Errorf("record: evict %s: %w", name, err)
		}
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Set writes value under key.
func (s *DirStore) Set(ctx context.Context, key, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = NoExpiry
	}

	data, err := json.Marshal(fileEntry{
		Version:   s.version,
		Key:       key,
		Value:     value,
		CreatedAt: s.now().UTC(),
		TTL:       ttl,
	})
	if err != nil {
		return fmt.Errorf("record: encode: %w", err)
	}

	name := FileName(key)
	tmp := tempPrefix + uuid.NewString()
	if err := util.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("record: write %s: %w", tmp, err)
	}
	err = s.retry.Execute(ctx, func(context.Context) error {
		return s.fs.Rename(tmp, name)
	})
	if err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("record: replace %s: %w", name, err)
	}
	return nil
}

// Delete removes the record under key. Idempotent.
func (s *DirStore) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	name := FileName(key)
	if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("record: delete %s: %w", name, err)
	}
	return nil
}

// Clear removes every record file, leaving other files alone.
func (s *DirStore) Clear(ctx context.Context) error {
	names, err := s.recordFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("record: clear %s: %w", name, err)
		}
	}
	return nil
}

// Prune removes expired, corrupt, and other-version records and returns
// how many files it deleted.
func (s *DirStore) Prune(ctx context.Context) (int, error) {
	names, err := s.recordFiles()
	if err != nil {
		return 0, err
	}

	now := s.now()
	removed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		entry, err := s.read(name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		stale := err != nil || entry.Version != s.version ||
			Record{CreatedAt: entry.CreatedAt, TTL: entry.TTL}.Expired(now)
		if !stale {
			continue
		}
		if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("record: prune %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// Len counts record files, whatever their version or age.
func (s *DirStore) Len() (int, error) {
	names, err := s.recordFiles()
	return len(names), err
}

func (s *DirStore) read(name string) (fileEntry, error) {
	data, err := util.ReadFile(s.fs, name)
	if err != nil {
		return fileEntry{}, err
	}
	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return fileEntry{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return entry, nil
}

func (s *DirStore) recordFiles() ([]string, error) {
	infos, err := s.fs.ReadDir(".")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("record: list: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), Ext) {
			continue
		}
		names = append(names, info.Name())
	}
	return names, nil
}

var _ Store = (*DirStore)(nil)
