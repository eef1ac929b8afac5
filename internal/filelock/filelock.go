// Package filelock provides advisory file locking so that concurrent
// modtask processes do not interleave writes to the same workspace.
package filelock

import (
	"errors"
	"os"
)

const lockFileMode = 0o600

// ErrLocked is returned by TryLock when another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// Lock acquires an exclusive advisory lock on the file at path, creating
// it if it does not exist. It blocks until the lock is available. The
// returned function releases the lock.
func Lock(path string) (unlock func() error, err error) {
	return acquire(path, true)
}

// TryLock is like Lock but returns ErrLocked instead of waiting.
func TryLock(path string) (unlock func() error, err error) {
	return acquire(path, false)
}

// With runs fn while holding the lock at path.
func With(path string, fn func() error) (err error) {
	unlock, err := Lock(path)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := unlock(); err == nil {
			err = uerr
		}
	}()
	return fn()
}

func acquire(path string, wait bool) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFileMode) //nolint:gosec // lock file path from trusted workspace dir
	if err != nil {
		return nil, err
	}

	if err := lockFile(f, wait); err != nil {
		_ = f.Close()
		return nil, err
	}

	return func() error {
		unlockErr := unlockFile(f)
		closeErr := f.Close()
		if unlockErr != nil {
			return unlockErr
		}
		return closeErr
	}, nil
}
