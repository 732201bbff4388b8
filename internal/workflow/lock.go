package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrSessionActive reports that another photoscan session holds the lock.
var ErrSessionActive = errors.New("another scanning session is active")

// SessionLock guards against two concurrent sessions driving the same
// scanner.
type SessionLock struct {
	lock *flock.Flock
}

// AcquireSessionLock takes the advisory lock at path without blocking.
func AcquireSessionLock(path string) (*SessionLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock file %s)", ErrSessionActive, path)
	}
	return &SessionLock{lock: lock}, nil
}

// Release frees the lock. Safe to call on nil.
func (l *SessionLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
