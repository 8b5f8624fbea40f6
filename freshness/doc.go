// Package freshness decides whether a stored outcome may be served.
//
// Successful results and failures age independently, each under its own
// Policy. Decide is a pure function of the stored entry, the current
// time, and the two policies; it performs no I/O.
//
//	Decide(nil, now, results, errs)                 -> Miss
//	Decide(&Entry{CreatedAt: t0}, now, For(d), ...) -> Hit while now-t0 <= d
//	Decide(&Entry{Failed: true, ...}, now, ..., Unbounded()) -> HitFailure
package freshness
