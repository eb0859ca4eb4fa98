package kvlog

import (
	"errors"
)

// Kind classifies a store failure. The set is closed: every error returned
// by a public kvlog API carries exactly one of these kinds.
type Kind uint8

const (
	// KindUnknown is reserved. No documented code path produces it.
	KindUnknown Kind = iota

	// KindIO indicates an underlying filesystem failure
	// (open/read/write/seek/rename).
	KindIO

	// KindEncode indicates a record could not be serialized for append.
	KindEncode

	// KindDecode indicates the bytes at a known, directly addressed offset
	// did not form a valid record. Decode failures during replay are not
	// errors; replay treats them as end of valid data.
	KindDecode

	// KindKeyNotFound indicates Remove was invoked on a key absent from
	// the index.
	KindKeyNotFound
)

// String returns the kind's name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindEncode:
		return "encode"
	case KindDecode:
		return "decode"
	case KindKeyNotFound:
		return "key_not_found"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Sentinel errors usable with [errors.Is].
var (
	// ErrKeyNotFound is the cause carried by KindKeyNotFound errors.
	ErrKeyNotFound = errors.New("key not found")

	// ErrClosed indicates an operation was attempted on a closed Store.
	ErrClosed = errors.New("store closed")

	// ErrLocked indicates the log file is already owned by another store
	// instance (only produced when [Config.LockFile] is set).
	ErrLocked = errors.New("log file locked by another process")
)

// Error is the uniform error type returned by all public kvlog APIs.
//
// The underlying error message appears first, followed by key context:
//
//	read record: unexpected EOF (kind=decode key=foo)
//
// Use [errors.As] to extract the structured fields:
//
//	var kErr *kvlog.Error
//	if errors.As(err, &kErr) && kErr.Kind == kvlog.KindDecode { ... }
//
// Use [errors.Is] to check for sentinel causes:
//
//	if errors.Is(err, kvlog.ErrKeyNotFound) { ... }
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Key is the key the failing operation addressed, when known.
	Key string

	// Err is the underlying cause.
	Err error
}

// Error formats as "<cause> (kind=X key=Y)".
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	suffix := "(kind=" + e.Kind.String()
	if e.Key != "" {
		suffix += " key=" + e.Key
	}

	suffix += ")"

	if e.Err == nil {
		return suffix
	}

	return e.Err.Error() + " " + suffix
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// wrapErr attaches kind and key context at API boundaries and returns *Error.
// If err is already *Error, a missing key is filled in and the original kind
// is preserved.
func wrapErr(kind Kind, key string, err error) error {
	if err == nil {
		return nil
	}

	existing := &Error{}
	if errors.As(err, &existing) {
		if existing.Key == "" && key != "" {
			existing.Key = key
		}

		return existing
	}

	return &Error{Kind: kind, Key: key, Err: err}
}
