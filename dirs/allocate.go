package dirs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/jonwraymond/filememo/resilience"
)

const (
	// MarkerName is the file inside each candidate directory that holds
	// the owning identity. Record stores must not treat it as an entry.
	MarkerName = "func.txt"

	// MaxProbes bounds the linear probe.
	MaxProbes = 1000

	// DefaultStaleAfter is how long a missing or empty marker is waited
	// for before its directory counts as abandoned.
	DefaultStaleAfter = 10 * time.Second
)

// HashFunc turns an identity into a directory name prefix.
// It must be stable across processes.
type HashFunc func(identity string) string

// SHA256 is the default HashFunc: the hex SHA-256 digest of the identity.
func SHA256(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}

// Option configures Allocate and Lookup.
type Option func(*allocator)

// WithHash overrides the hash function.
func WithHash(h HashFunc) Option {
	return func(a *allocator) {
		if h != nil {
			a.hash = h
		}
	}
}

// WithStaleAfter overrides DefaultStaleAfter.
func WithStaleAfter(d time.Duration) Option {
	return func(a *allocator) {
		if d > 0 {
			a.staleAfter = d
		}
	}
}

// WithRetry overrides how a pending marker is polled. A budget that runs
// out before the marker is written or goes stale fails the allocation.
func WithRetry(r *resilience.Retry) Option {
	return func(a *allocator) {
		if r != nil {
			a.retry = r
		}
	}
}

type allocator struct {
	fs         billy.Filesystem
	hash       HashFunc
	retry      *resilience.Retry
	staleAfter time.Duration
}

func newAllocator(fsys billy.Filesystem, opts []Option) *allocator {
	a := &allocator{
		fs:         fsys,
		hash:       SHA256,
		staleAfter: DefaultStaleAfter,
		// Polling ends when the marker is written, goes stale, or ctx
		// is done; the attempt cap is only a backstop.
		retry: resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  1 << 20,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     100 * time.Millisecond,
			RetryIf:      func(err error) bool { return errors.Is(err, errMarkerPending) },
		}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Candidate returns the name of probe i for hash h.
func Candidate(h string, i int) string {
	return fmt.Sprintf("%s_%d", h, i)
}

// Allocate returns the directory (relative to fsys) bound to identity,
// creating it and its marker on first use.
func Allocate(ctx context.Context, fsys billy.Filesystem, identity string, opts ...Option) (string, error) {
	if fsys == nil {
		return "", ErrNilFilesystem
	}
	if identity == "" {
		return "", ErrEmptyIdentity
	}

	a := newAllocator(fsys, opts)
	h := a.hash(identity)
	for i := 0; i < MaxProbes; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		dir := Candidate(h, i)
		owner, err := a.claim(ctx, dir, identity)
		if err != nil {
			return "", err
		}
		if owner == identity {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %d candidates for %q", ErrTooManyCollisions, MaxProbes, identity)
}

// Lookup finds the directory already bound to identity without creating
// anything. It reports false when no candidate carries the identity.
func Lookup(ctx context.Context, fsys billy.Filesystem, identity string, opts ...Option) (string, bool, error) {
	if fsys == nil {
		return "", false, ErrNilFilesystem
	}
	if identity == "" {
		return "", false, ErrEmptyIdentity
	}

	a := newAllocator(fsys, opts)
	h := a.hash(identity)
	for i := 0; i < MaxProbes; i++ {
		dir := Candidate(h, i)
		if _, err := fsys.Stat(dir); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("dirs: stat %s: %w", dir, err)
		}
		owner, err := a.owner(ctx, dir)
		if err != nil {
			return "", false, err
		}
		if owner == identity {
			return dir, true, nil
		}
	}
	return "", false, nil
}

// claim makes sure dir exists and has a marker, writing identity into it
// when the marker is new. It returns the marker's owner.
func (a *allocator) claim(ctx context.Context, dir, identity string) (string, error) {
	if err := a.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("dirs: create %s: %w", dir, err)
	}

	marker := a.fs.Join(dir, MarkerName)
	f, err := a.fs.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	switch {
	case err == nil:
		_, werr := f.Write([]byte(identity))
		cerr := f.Close()
		if werr != nil {
			return "", fmt.Errorf("dirs: write marker %s: %w", marker, werr)
		}
		if cerr != nil {
			return "", fmt.Errorf("dirs: close marker %s: %w", marker, cerr)
		}
		return identity, nil
	case errors.Is(err, os.ErrExist):
		return a.owner(ctx, dir)
	default:
		return "", fmt.Errorf("dirs: create marker %s: %w", marker, err)
	}
}

// owner reads dir's marker, waiting while another process is still
// writing it. Only a marker left missing or empty for longer than the
// stale limit is reported as owned by nobody, which makes the caller
// probe the next candidate.
func (a *allocator) owner(ctx context.Context, dir string) (string, error) {
	marker := a.fs.Join(dir, MarkerName)
	owner, err := resilience.Value(ctx, a.retry, func(context.Context) (string, error) {
		data, err := util.ReadFile(a.fs, marker)
		switch {
		case err == nil && len(data) > 0:
			return string(data), nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", resilience.Permanent(fmt.Errorf("dirs: read marker %s: %w", marker, err))
		case a.abandoned(dir, marker):
			return "", resilience.Permanent(errMarkerAbandoned)
		default:
			return "", errMarkerPending
		}
	})
	switch {
	case errors.Is(err, errMarkerAbandoned):
		return "", nil
	case errors.Is(err, errMarkerPending):
		return "", fmt.Errorf("dirs: marker %s never written: %w", marker, err)
	}
	return owner, err
}

// abandoned reports whether the marker, or its directory when the marker
// is missing, was last touched longer ago than the stale limit.
func (a *allocator) abandoned(dir, marker string) bool {
	info, err := a.fs.Stat(marker)
	if errors.Is(err, os.ErrNotExist) {
		info, err = a.fs.Stat(dir)
	}
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > a.staleAfter
}
