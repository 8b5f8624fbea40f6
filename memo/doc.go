// Package memo persists the outcomes of function calls on disk.
//
// A wrapped function is bound to its own cache directory, derived from
// where it was wrapped and its qualified name. Each call's arguments form
// the record key; results and errors are stored with separate aging
// policies and replayed until they go stale.
//
//	add, _, err := memo.Memoize2(func(ctx context.Context, a, b int) (int, error) {
//		return a + b, nil
//	}, memo.WithMaxAge(freshness.For(time.Hour)))
//
// Errors returned by a memoized function, fresh or replayed, arrive as a
// *FunctionError. Context cancellation is never cached.
package memo
