package kvlog

import (
	"fmt"
	"os"
	"syscall"
)

// fileLock is an exclusive flock on a sidecar .lock file, guarding a log
// path against a second store instance. The lock file itself is never
// deleted; ownership is conveyed by the flock, not by file existence.
type fileLock struct {
	path string
	file *os.File
}

// acquireFileLock takes a non-blocking exclusive lock on logPath + ".lock".
// Returns ErrLocked (wrapped) when another process already holds it.
func acquireFileLock(logPath string) (*fileLock, error) {
	lockPath := logPath + ".lock"

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, logFilePerms) //nolint:gosec // path is from caller
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		closeErr := file.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("%w: %s (and closing lock file: %w)", ErrLocked, logPath, closeErr)
		}

		return nil, fmt.Errorf("%w: %s", ErrLocked, logPath)
	}

	return &fileLock{path: lockPath, file: file}, nil
}

// release drops the flock and closes the lock file. Safe on nil.
func (l *fileLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}

	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)

	err := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("close lock file %q: %w", l.path, err)
	}

	return nil
}
