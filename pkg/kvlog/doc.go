// Package kvlog implements an embedded, single-process, persistent
// key-value store backed by an append-only log.
//
// All mutations are sequential appends: a Set writes the key and value, a
// Remove writes a tombstone. An in-memory index maps each key to the byte
// offset of its most recent surviving Set record; the index is never
// persisted and is rebuilt by replaying the whole log on every [Open]. A
// bounded LRU cache of decoded values sits in front of the index as a pure
// accelerator.
//
// Space occupied by superseded and removed entries is reclaimed by
// compaction: once enough wasteful operations (overwrites and removes) have
// accumulated, the live keys are rewritten into a temporary file that is
// atomically renamed over the log.
//
// A Store must have exclusive ownership of its log file. There is no
// internal locking; a single goroutine (or external synchronization) is
// required, and two Store instances must never share a path. Set
// [Config.LockFile] to enforce single ownership across processes via flock.
package kvlog
