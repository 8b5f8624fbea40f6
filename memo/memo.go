package memo

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/filememo/dirs"
	"github.com/jonwraymond/filememo/freshness"
	"github.com/jonwraymond/filememo/identity"
	"github.com/jonwraymond/filememo/observe"
	"github.com/jonwraymond/filememo/record"
)

// Func is a memoized function. Its Call method has the signature of the
// wrapped function.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent misses for the same
//     key both run the function unless coalescing is enabled; the last
//     write wins.
//   - Context: Call returns ctx.Err() without touching the cache when ctx
//     is already done.
//   - Errors: function errors are *FunctionError; cancellation errors are
//     returned as is and never stored. Store failures never fail a call.
type Func[K, R any] struct {
	fn    func(context.Context, K) (R, error)
	id    identity.Identity
	opts  options
	in    *observe.Instruments
	group singleflight.Group

	mu    sync.Mutex
	store record.Store
	root  string
	dir   string
}

// Wrap memoizes fn. The function's identity, and with it its cache
// directory, comes from fn's qualified name and the file Wrap was called
// from. The directory itself is created on the first call.
//
// Replayed failures wrap a *StoredError. It matches errors.Is against
// sentinels the function returned as is; use WithErrorDecoder with
// SentinelDecoder to restore wrapped sentinels or custom error types.
//
// Keys and results must survive encoding: types with unexported or
// "-"-tagged fields fail with ErrLossyType.
func Wrap[K, R any](fn func(context.Context, K) (R, error), opts ...Option) (*Func[K, R], error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	return newFunc(fn, fn, opts)
}

// MustWrap is like Wrap but panics if the identity cannot be resolved.
func MustWrap[K, R any](fn func(context.Context, K) (R, error), opts ...Option) *Func[K, R] {
	if fn == nil {
		panic(ErrNilFunc)
	}
	f, err := newFunc(fn, fn, opts)
	if err != nil {
		panic(err)
	}
	return f
}

// Memoize0 memoizes a function without arguments.
func Memoize0[R any](fn func(context.Context) (R, error), opts ...Option) (func(context.Context) (R, error), *Func[struct{}, R], error) {
	if fn == nil {
		return nil, nil, ErrNilFunc
	}
	f, err := newFunc(fn, func(ctx context.Context, _ struct{}) (R, error) {
		return fn(ctx)
	}, opts)
	if err != nil {
		return nil, nil, err
	}
	return func(ctx context.Context) (R, error) {
		return f.Call(ctx, struct{}{})
	}, f, nil
}

// Memoize1 memoizes a one-argument function.
func Memoize1[A, R any](fn func(context.Context, A) (R, error), opts ...Option) (func(context.Context, A) (R, error), *Func[A, R], error) {
	if fn == nil {
		return nil, nil, ErrNilFunc
	}
	f, err := newFunc(fn, fn, opts)
	if err != nil {
		return nil, nil, err
	}
	return f.Call, f, nil
}

// Memoize2 memoizes a two-argument function. Calls are keyed by
// Pair{a, b}.
func Memoize2[A, B, R any](fn func(context.Context, A, B) (R, error), opts ...Option) (func(context.Context, A, B) (R, error), *Func[Pair[A, B], R], error) {
	if fn == nil {
		return nil, nil, ErrNilFunc
	}
	f, err := newFunc(fn, func(ctx context.Context, p Pair[A, B]) (R, error) {
		return fn(ctx, p.First, p.Second)
	}, opts)
	if err != nil {
		return nil, nil, err
	}
	return func(ctx context.Context, a A, b B) (R, error) {
		return f.Call(ctx, Pair[A, B]{First: a, Second: b})
	}, f, nil
}

// newFunc resolves the identity of orig, the user's function, and wraps
// call, its adapter to a single key.
func newFunc[K, R any](orig any, call func(context.Context, K) (R, error), opts []Option) (*Func[K, R], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var (
		id  identity.Identity
		err error
	)
	if o.name != "" {
		id, err = identity.Named(o.name)
	} else {
		id, err = identity.Of(orig)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentity, err)
	}

	if err := checkWrapTypes[K, R](o); err != nil {
		return nil, err
	}

	in, err := o.instruments()
	if err != nil {
		return nil, err
	}

	return &Func[K, R]{
		fn:    call,
		id:    id,
		opts:  o,
		in:    in,
		store: o.store,
	}, nil
}

// Identity returns the function's identity.
func (f *Func[K, R]) Identity() identity.Identity { return f.id }

// Dir returns the function's cache directory, or "" before the first
// call or when a custom store is in use.
func (f *Func[K, R]) Dir() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dir == "" {
		return ""
	}
	return filepath.Join(f.root, f.dir)
}

// Store returns the record store, allocating the cache directory if the
// function has not been called yet.
func (f *Func[K, R]) Store(ctx context.Context) (record.Store, error) {
	return f.ensureStore(ctx)
}

// Forget removes the cached outcome for k.
func (f *Func[K, R]) Forget(ctx context.Context, k K) error {
	key, err := f.opts.keyer.Key(f.id.Name, k)
	if err != nil {
		return err
	}
	store, err := f.ensureStore(ctx)
	if err != nil {
		return err
	}
	return store.Delete(ctx, key)
}

// Clear removes every cached outcome of the function.
func (f *Func[K, R]) Clear(ctx context.Context) error {
	store, err := f.ensureStore(ctx)
	if err != nil {
		return err
	}
	return store.Clear(ctx)
}

// Call runs the memoized function for k.
func (f *Func[K, R]) Call(ctx context.Context, k K) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	key, err := f.opts.keyer.Key(f.id.Name, k)
	if err != nil {
		// Unkeyable arguments run uncached.
		f.in.Logger().WithFunc(f.meta()).Warn(ctx, "arguments cannot be keyed, calling uncached",
			observe.Field{Key: "error", Value: err})
		return f.callUncached(ctx, k)
	}

	store, err := f.ensureStore(ctx)
	if err != nil {
		return zero, err
	}

	if !f.opts.coalesce {
		return f.call(ctx, store, key, k)
	}
	v, err, _ := f.group.Do(string(key), func() (any, error) {
		return f.call(ctx, store, key, k)
	})
	r, _ := v.(R)
	return r, err
}

func (f *Func[K, R]) callUncached(ctx context.Context, k K) (R, error) {
	var zero R
	r, err := f.fn(ctx, k)
	if err == nil {
		return r, nil
	}
	if isTermination(err) {
		return zero, err
	}
	return zero, &FunctionError{Func: f.id.Name, Err: err}
}

func (f *Func[K, R]) call(ctx context.Context, store record.Store, key []byte, k K) (R, error) {
	var zero R
	ctx, c := f.in.Begin(ctx, f.meta())

	entry, env := f.lookup(ctx, c, store, key)
	switch freshness.Decide(entry, f.opts.now(), f.opts.results, f.opts.errs) {
	case freshness.Hit:
		r, err := decodeResult[R](f.opts.codec, env)
		if err == nil {
			c.End(ctx, freshness.Hit.String(), nil)
			return r, nil
		}
		c.StoreError(ctx, "decode", err)
	case freshness.HitFailure:
		ferr := &FunctionError{Func: f.id.Name, Err: f.replay(env.Error)}
		c.End(ctx, freshness.HitFailure.String(), ferr)
		return zero, ferr
	}

	r, err := f.fn(ctx, k)
	if err != nil && isTermination(err) {
		c.End(ctx, freshness.Miss.String(), err)
		return zero, err
	}

	failed := err != nil
	if freshness.ShouldStore(failed, f.opts.results, f.opts.errs) {
		f.save(ctx, c, store, key, r, err, freshness.TTLFor(failed, f.opts.results, f.opts.errs))
	}

	if failed {
		ferr := &FunctionError{Func: f.id.Name, Err: err}
		c.End(ctx, freshness.Miss.String(), ferr)
		return zero, ferr
	}
	c.End(ctx, freshness.Miss.String(), nil)
	return r, nil
}

// lookup reads the stored outcome for key. Anything unreadable is a miss.
func (f *Func[K, R]) lookup(ctx context.Context, c *observe.Call, store record.Store, key []byte) (*freshness.Entry, envelope) {
	rec, ok, err := store.Get(ctx, key)
	if err != nil {
		c.StoreError(ctx, "get", err)
		return nil, envelope{}
	}
	if !ok {
		return nil, envelope{}
	}
	env, err := decodeEnvelope(f.opts.codec, rec.Value)
	if err != nil {
		c.StoreError(ctx, "decode", err)
		return nil, envelope{}
	}
	return &freshness.Entry{Failed: env.Failed, CreatedAt: rec.CreatedAt}, env
}

func (f *Func[K, R]) save(ctx context.Context, c *observe.Call, store record.Store, key []byte, r R, fnErr error, ttl time.Duration) {
	payload, err := encodeOutcome(f.opts.codec, r, fnErr)
	if err != nil {
		c.StoreError(ctx, "encode", err)
		return
	}
	if err := store.Set(ctx, key, payload, ttl); err != nil {
		c.StoreError(ctx, "set", err)
	}
}

func (f *Func[K, R]) replay(stored *StoredError) error {
	if f.opts.decode != nil {
		if err := f.opts.decode(stored); err != nil {
			return err
		}
	}
	return stored
}

// ensureStore allocates the cache directory on first use.
func (f *Func[K, R]) ensureStore(ctx context.Context) (record.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store != nil {
		return f.store, nil
	}

	fsys := f.opts.fs
	if fsys == nil {
		fsys = osfs.New(f.opts.dir)
	}
	dir, err := dirs.Allocate(ctx, fsys, f.id.String(), dirs.WithHash(f.opts.hash))
	if err != nil {
		return nil, fmt.Errorf("memo: allocate cache directory for %s: %w", f.id.Name, err)
	}
	sub, err := fsys.Chroot(dir)
	if err != nil {
		return nil, fmt.Errorf("memo: open cache directory %s: %w", dir, err)
	}
	store, err := record.NewDirStore(sub, f.opts.version, record.WithClock(f.opts.now))
	if err != nil {
		return nil, err
	}

	f.store, f.root, f.dir = store, root(fsys), dir
	return f.store, nil
}

func (f *Func[K, R]) meta() observe.FuncMeta {
	return observe.FuncMeta{
		Name:     f.id.Name,
		Identity: f.id.String(),
		Dir:      f.Dir(),
		Version:  f.opts.version,
	}
}

func root(fsys billy.Filesystem) string {
	if r := fsys.Root(); r != "" {
		return r
	}
	return string(filepath.Separator)
}
