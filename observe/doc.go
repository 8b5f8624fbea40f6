// Package observe provides logging, metrics, and tracing for memoized calls.
//
// It is a pure instrumentation library: the memo package asks it to open
// a call, then reports the freshness decision and any error when the
// call ends. Every primitive has a no-op form, so unobserved functions
// pay almost nothing.
package observe
