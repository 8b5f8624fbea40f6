// Package record stores memoized outcomes keyed by opaque byte keys.
//
// A Store keeps one Record per key: the value bytes, the time the store
// wrote them, and the TTL the writer asked for. Stores may evict expired
// records on their own, but callers re-validate freshness on every read.
//
// DirStore keeps one file per key inside a cache directory and tags every
// file with a version number, so bumping the version hides everything
// written under the old one. MemoryStore keeps records in process.
package record
