package memo

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/jonwraymond/filememo/dirs"
	"github.com/jonwraymond/filememo/freshness"
	"github.com/jonwraymond/filememo/observe"
	"github.com/jonwraymond/filememo/record"
)

// DefaultVersion is the record version used when none is set.
const DefaultVersion = 1

// DefaultDir returns the parent directory shared by every function
// wrapped without WithDir or WithFS.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "filememo")
}

// Option configures Wrap.
type Option func(*options)

type options struct {
	dir      string
	fs       billy.Filesystem
	results  freshness.Policy
	errs     freshness.Policy
	version  int
	store    record.Store
	name     string
	now      func() time.Time
	logger   observe.Logger
	observer observe.Observer
	decode   ErrorDecoder
	coalesce bool
	keyer    Keyer
	codec    Codec
	hash     dirs.HashFunc
}

func defaultOptions() options {
	return options{
		dir:     DefaultDir(),
		results: freshness.Unbounded(),
		errs:    freshness.Unbounded(),
		version: DefaultVersion,
		now:     time.Now,
		keyer:   NewDefaultKeyer(),
		codec:   JSON,
	}
}

// WithDir sets the parent directory under which the function's cache
// directory is allocated.
func WithDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.dir = dir
		}
	}
}

// WithFS allocates the cache directory on fsys instead of the OS
// filesystem at WithDir.
func WithFS(fsys billy.Filesystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithMaxAge sets how long successful results are served.
func WithMaxAge(p freshness.Policy) Option {
	return func(o *options) { o.results = p }
}

// WithErrorMaxAge sets how long errors are replayed. freshness.Never()
// keeps errors out of the cache entirely.
func WithErrorMaxAge(p freshness.Policy) Option {
	return func(o *options) { o.errs = p }
}

// WithVersion sets the record version. Records written under another
// version read as absent.
func WithVersion(v int) Option {
	return func(o *options) { o.version = v }
}

// WithStore replaces the directory-backed store. No directory is
// allocated and WithDir, WithFS and WithVersion are ignored.
func WithStore(s record.Store) Option {
	return func(o *options) { o.store = s }
}

// WithName registers the function under an explicit name instead of its
// runtime symbol.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithClock sets the clock used for freshness and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger. It takes precedence over the observer's.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver records spans and metrics for every call.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithErrorDecoder rehydrates replayed errors.
func WithErrorDecoder(d ErrorDecoder) Option {
	return func(o *options) { o.decode = d }
}

// WithCoalescing collapses concurrent misses for the same key within this
// process into one call.
func WithCoalescing(enabled bool) Option {
	return func(o *options) { o.coalesce = enabled }
}

// WithKeyer replaces the argument keyer.
func WithKeyer(k Keyer) Option {
	return func(o *options) {
		if k != nil {
			o.keyer = k
		}
	}
}

// WithCodec sets how outcomes are serialized. Entries written by another
// codec read as misses and are overwritten.
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithHash replaces the directory allocator's hash.
func WithHash(h dirs.HashFunc) Option {
	return func(o *options) { o.hash = h }
}

func (o *options) instruments() (*observe.Instruments, error) {
	if o.observer == nil {
		return observe.NewInstruments(nil, nil, o.logger), nil
	}
	in, err := observe.InstrumentsFromObserver(o.observer)
	if err != nil {
		return nil, err
	}
	if o.logger == nil {
		return in, nil
	}
	return observe.NewInstruments(in.Tracer(), in.Metrics(), o.logger), nil
}
