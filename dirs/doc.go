// Package dirs maps function identities to cache directories.
//
// Each identity is hashed and probed linearly through candidate
// directories named "<hash>_0", "<hash>_1", ... under a parent
// filesystem. Every candidate holds a marker file (func.txt) with the
// identity it was allocated for, so a hash collision with a different
// function moves on to the next suffix instead of sharing a directory.
//
// Marker creation is exclusive. A process that loses the race to create
// a marker re-reads it and accepts the directory when the content
// matches, so concurrent first use of the same identity from several
// processes converges on one directory.
package dirs
