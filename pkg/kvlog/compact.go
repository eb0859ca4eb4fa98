package kvlog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"
)

// compactSuffix distinguishes the temporary rewrite file created next to
// the log during compaction.
const compactSuffix = ".compact"

// maybeCompact runs a compaction pass once the wasteful-operation counter
// crosses the configured threshold.
func (s *Store) maybeCompact() error {
	if s.wasteful <= s.cfg.CompactThreshold {
		return nil
	}

	return s.compact()
}

// Compact forces a compaction pass regardless of the wasteful-operation
// counter. Useful for reclaiming space on demand, e.g. from a CLI.
func (s *Store) Compact() error {
	if s.closed {
		return wrapErr(KindIO, "", ErrClosed)
	}

	return s.compact()
}

// compact rewrites all live key/value pairs into a temporary file alongside
// the log and atomically renames it over the original path. The index is
// updated to the freshly written offsets together with the swap, so every
// index entry keeps addressing a valid Set record in the current file.
//
// The rename is the only atomic step. Failures before it leave the original
// log untouched (the temporary file is removed); a failure after it
// surfaces, with no rollback.
func (s *Store) compact() error {
	tmpPath := s.path + compactSuffix

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, logFilePerms) //nolint:gosec // sidecar of the log path
	if err != nil {
		return wrapErr(KindIO, "", fmt.Errorf("create compaction file: %w", err))
	}

	newOffsets, written, err := s.rewriteLive(tmp)
	if err != nil {
		return errors.Join(err, cleanupCompactFile(tmpPath, tmp))
	}

	err = tmp.Sync()
	if err != nil {
		return errors.Join(
			wrapErr(KindIO, "", fmt.Errorf("sync compaction file: %w", err)),
			cleanupCompactFile(tmpPath, tmp),
		)
	}

	err = tmp.Close()
	if err != nil {
		return errors.Join(
			wrapErr(KindIO, "", fmt.Errorf("close compaction file: %w", err)),
			removeCompactFile(tmpPath),
		)
	}

	// Release the old log handle before the swap.
	err = s.log.Close()
	if err != nil {
		return errors.Join(wrapErr(KindIO, "", err), removeCompactFile(tmpPath))
	}

	err = atomic.ReplaceFile(tmpPath, s.path)
	if err != nil {
		return wrapErr(KindIO, "", fmt.Errorf("swap compacted log: %w", err))
	}

	log, err := openLogFile(s.path)
	if err != nil {
		return wrapErr(KindIO, "", err)
	}

	s.log = log
	s.index = newOffsets
	s.wasteful = 0
	s.compactions++

	if s.cfg.Logger != nil {
		s.cfg.Logger.Info("log compacted",
			slog.String("path", s.path),
			slog.Int("live_keys", len(newOffsets)),
			slog.Int64("bytes", written),
		)
	}

	return nil
}

// rewriteLive streams every live key's current value from the old log into
// tmp as a fresh Set record, capturing each record's new start offset.
// Index iteration order is arbitrary; the rewritten content is equivalent
// either way.
func (s *Store) rewriteLive(tmp *os.File) (map[string]int64, int64, error) {
	newOffsets := make(map[string]int64, len(s.index))

	var written int64

	for key, offset := range s.index {
		rec, err := s.log.readRecordAt(offset)
		if err != nil {
			return nil, 0, wrapErr(KindDecode, key, err)
		}

		if rec.tag != tagSet {
			return nil, 0, &Error{
				Kind: KindDecode,
				Key:  key,
				Err:  fmt.Errorf("index offset %d holds a tombstone", offset),
			}
		}

		buf, err := encodeRecord(record{tag: tagSet, key: key, value: rec.value})
		if err != nil {
			return nil, 0, &Error{Kind: KindEncode, Key: key, Err: err}
		}

		_, err = tmp.Write(buf)
		if err != nil {
			return nil, 0, wrapErr(KindIO, key, fmt.Errorf("write compaction file: %w", err))
		}

		newOffsets[key] = written
		written += int64(len(buf))
	}

	return newOffsets, written, nil
}

// cleanupCompactFile closes and removes a half-written compaction file.
func cleanupCompactFile(path string, file *os.File) error {
	closeErr := file.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close compaction file: %w", closeErr)
	}

	return errors.Join(closeErr, removeCompactFile(path))
}

// removeCompactFile deletes the temporary compaction file, tolerating its
// absence.
func removeCompactFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove compaction file %q: %w", path, err)
	}

	return nil
}
