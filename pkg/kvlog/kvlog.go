package kvlog

import (
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Defaults applied by [OpenWithConfig] when the corresponding Config field
// is zero.
const (
	// DefaultCacheSize bounds the in-memory read cache.
	DefaultCacheSize = 100

	// DefaultCompactThreshold is the number of wasteful operations
	// (overwrites and removes) after which compaction triggers.
	DefaultCompactThreshold = 1000
)

// Config configures a [Store]. The zero value of every field except Path is
// usable; defaults are documented per field.
type Config struct {
	// Path is the log file location. Required. If it names a directory,
	// the log lives at Path/data.log (created if absent).
	Path string

	// CacheSize bounds the LRU read cache. Default: DefaultCacheSize.
	CacheSize int

	// CompactThreshold is the wasteful-operation count above which a
	// compaction pass runs. Default: DefaultCompactThreshold. The counter
	// is process-local: it resets after each compaction and starts at
	// zero on every open.
	CompactThreshold int

	// LockFile, when true, takes an exclusive flock on Path + ".lock" for
	// the lifetime of the store, so a second instance (in this process or
	// another) fails fast instead of corrupting the index-to-offset
	// mapping.
	LockFile bool

	// Logger, when non-nil, receives compaction events. The engine is
	// otherwise silent.
	Logger *slog.Logger
}

// Store is a persistent key-value store over a single append-only log file.
//
// Not safe for concurrent use: all operations are synchronous and assume a
// single caller. Exactly one Store should own a given log path at a time.
type Store struct {
	cfg   Config
	path  string // resolved log file path
	log   *logFile
	index map[string]int64
	cache *lru.Cache[string, string]
	lock  *fileLock // nil unless Config.LockFile

	// wasteful counts overwrites and removes since the last compaction.
	// Process-local: reset after compaction, implicitly zero on open.
	wasteful    int
	compactions int

	closed bool
}

// Open opens (creating if necessary) the log at path with default
// configuration. If path is a directory the log lives at path/data.log.
func Open(path string) (*Store, error) {
	return OpenWithConfig(Config{Path: path})
}

// OpenWithConfig opens the store described by cfg. The index is rebuilt by
// a full sequential replay of the log; a truncated tail record is silently
// dropped (see [Config] and the package documentation).
func OpenWithConfig(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("Config.Path is required")
	}

	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("Config.CacheSize must be positive, got %d", cfg.CacheSize)
	}

	if cfg.CompactThreshold == 0 {
		cfg.CompactThreshold = DefaultCompactThreshold
	}

	if cfg.CompactThreshold < 0 {
		return nil, fmt.Errorf("Config.CompactThreshold must be positive, got %d", cfg.CompactThreshold)
	}

	path, err := resolveLogPath(cfg.Path)
	if err != nil {
		return nil, wrapErr(KindIO, "", err)
	}

	var lock *fileLock

	if cfg.LockFile {
		lock, err = acquireFileLock(path)
		if err != nil {
			return nil, wrapErr(KindIO, "", err)
		}
	}

	log, err := openLogFile(path)
	if err != nil {
		return nil, errors.Join(wrapErr(KindIO, "", err), lock.release())
	}

	cache, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, errors.Join(wrapErr(KindUnknown, "", err), log.Close(), lock.release())
	}

	return &Store{
		cfg:   cfg,
		path:  path,
		log:   log,
		index: buildIndex(log),
		cache: cache,
		lock:  lock,
	}, nil
}

// Get returns the value stored for key. Absence is a normal outcome, not an
// error: a key never written, or already removed, yields ok == false with a
// nil error.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	if s.closed {
		return "", false, wrapErr(KindIO, key, ErrClosed)
	}

	if value, ok := s.cache.Get(key); ok {
		return value, true, nil
	}

	offset, ok := s.index[key]
	if !ok {
		return "", false, nil
	}

	rec, err := s.log.readRecordAt(offset)
	if err != nil {
		return "", false, wrapErr(KindDecode, key, err)
	}

	// Every index entry points at a Set record; anything else means the
	// offset no longer addresses the record it was taken from.
	if rec.tag != tagSet {
		return "", false, &Error{
			Kind: KindDecode,
			Key:  key,
			Err:  fmt.Errorf("index offset %d holds a tombstone", offset),
		}
	}

	s.cache.Add(key, rec.value)

	return rec.value, true, nil
}

// Set stores value under key.
//
// When the key already holds an identical value the call is a no-op: no
// record is appended and neither the index nor the cache changes. This
// write deduplication costs a read before every write but keeps repeated
// identical sets from growing the log.
//
// An overwrite (a different prior value existed) counts as wasteful and may
// trigger compaction before Set returns.
func (s *Store) Set(key, value string) error {
	if s.closed {
		return wrapErr(KindIO, key, ErrClosed)
	}

	existing, found, err := s.Get(key)
	if err != nil {
		return err
	}

	if found && existing == value {
		return nil
	}

	offset, err := s.log.appendRecord(record{tag: tagSet, key: key, value: value})
	if err != nil {
		return wrapErr(KindIO, key, err)
	}

	_, overwrite := s.index[key]
	s.index[key] = offset

	if overwrite {
		s.wasteful++

		err = s.maybeCompact()
		if err != nil {
			return err
		}
	}

	s.cache.Add(key, value)

	return nil
}

// Remove deletes key from the store by appending a tombstone record.
// Returns a KindKeyNotFound error (cause [ErrKeyNotFound]) when the key is
// absent from the index. Removal always counts as wasteful and may trigger
// compaction before Remove returns.
func (s *Store) Remove(key string) error {
	if s.closed {
		return wrapErr(KindIO, key, ErrClosed)
	}

	if _, ok := s.index[key]; !ok {
		return &Error{Kind: KindKeyNotFound, Key: key, Err: ErrKeyNotFound}
	}

	s.cache.Remove(key)

	_, err := s.log.appendRecord(record{tag: tagRemove, key: key})
	if err != nil {
		return wrapErr(KindIO, key, err)
	}

	delete(s.index, key)

	s.wasteful++

	return s.maybeCompact()
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	return len(s.index)
}

// Keys returns a snapshot of all live keys in unspecified order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.index))
	for key := range s.index {
		keys = append(keys, key)
	}

	return keys
}

// Stats is a point-in-time snapshot of store internals.
type Stats struct {
	// Keys is the number of live keys in the index.
	Keys int

	// LogSizeBytes is the current length of valid data in the log file.
	LogSizeBytes int64

	// Compactions counts compaction passes since open.
	Compactions int

	// WastefulOps counts overwrites and removes since the last compaction.
	WastefulOps int
}

// Stats reports current store statistics.
func (s *Store) Stats() Stats {
	return Stats{
		Keys:         len(s.index),
		LogSizeBytes: s.log.size,
		Compactions:  s.compactions,
		WastefulOps:  s.wasteful,
	}
}

// Path returns the resolved log file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the log file handle (and the lock file when one is held).
// No final flush or compaction runs: whatever has been appended is on disk.
// Safe on nil, idempotent.
func (s *Store) Close() error {
	if s == nil || s.closed {
		return nil
	}

	s.closed = true

	return errors.Join(s.log.Close(), s.lock.release())
}
