package kvlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultLogName is the filename used when [Open] is given a directory.
const DefaultLogName = "data.log"

const logFilePerms = 0o644

// logFile owns the append-only log. Appends always go to the tracked
// end-of-file offset; point reads use pread so they never disturb the
// append position.
type logFile struct {
	path string
	file *os.File
	size int64 // end of valid data; start offset of the next append
}

// resolveLogPath maps a directory path to <dir>/data.log. File paths (and
// paths that do not exist yet) pass through unchanged.
func resolveLogPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, nil
		}

		return "", fmt.Errorf("stat %q: %w", path, err)
	}

	if info.IsDir() {
		return filepath.Join(path, DefaultLogName), nil
	}

	return path, nil
}

// openLogFile opens path for simultaneous append and random-access read,
// creating the file if absent. path must already be resolved to a file path.
func openLogFile(path string) (*logFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, logFilePerms)
	if err != nil {
		return nil, fmt.Errorf("open log %q: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		closeErr := file.Close()
		if closeErr != nil {
			closeErr = fmt.Errorf("close log: %w", closeErr)
		}

		return nil, errors.Join(fmt.Errorf("stat log %q: %w", path, err), closeErr)
	}

	return &logFile{path: path, file: file, size: info.Size()}, nil
}

// appendRecord serializes rec at the current end of file and returns the
// offset where the record begins. Appends never overwrite existing bytes.
func (l *logFile) appendRecord(rec record) (int64, error) {
	buf, err := encodeRecord(rec)
	if err != nil {
		return 0, &Error{Kind: KindEncode, Key: rec.key, Err: err}
	}

	offset := l.size

	_, err = l.file.WriteAt(buf, offset)
	if err != nil {
		return 0, &Error{Kind: KindIO, Key: rec.key, Err: fmt.Errorf("append record: %w", err)}
	}

	l.size += int64(len(buf))

	return offset, nil
}

// readRecordAt decodes exactly one record starting at offset, using an
// independent read cursor. Returns a KindDecode error if the bytes at
// offset do not form a valid record.
func (l *logFile) readRecordAt(offset int64) (record, error) {
	if offset < 0 || offset >= l.size {
		return record{}, &Error{
			Kind: KindDecode,
			Err:  fmt.Errorf("offset %d outside log bounds [0, %d)", offset, l.size),
		}
	}

	section := io.NewSectionReader(l.file, offset, l.size-offset)

	rec, _, err := decodeRecord(bufio.NewReader(section))
	if err != nil {
		return record{}, &Error{
			Kind: KindDecode,
			Err:  fmt.Errorf("record at offset %d: %w", offset, err),
		}
	}

	return rec, nil
}

// Close releases the underlying file handle.
func (l *logFile) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("close log %q: %w", l.path, err)
	}

	return nil
}
