// Package identity derives stable names for memoized functions.
//
// An Identity pairs the source file that registered a function with the
// function's qualified symbol name. Both parts come from static
// information (the registering call site and the runtime symbol table),
// so the same definition in the same source tree yields the same
// Identity in every process.
//
// Closures keep their enclosing path (pkg.outer.func1.1) and bound
// method values resolve to the method expression's name, so c.Inc and
// (*counter).Inc share an Identity.
package identity
