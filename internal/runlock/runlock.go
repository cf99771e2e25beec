// Package runlock keeps two processes from running the same production.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"
)

// ErrHeld reports that another process holds the production lock.
var ErrHeld = errors.New("production is already running in another process")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Lock is an exclusive file lock for one production.
type Lock struct {
	path string
	lock *flock.Flock
}

// Path returns the lock file path for productionID inside dir.
func Path(dir, productionID string) string {
	return filepath.Join(dir, unsafeChars.ReplaceAllString(productionID, "_")+".lock")
}

// Acquire takes the lock for productionID without blocking.
func Acquire(dir, productionID string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := Path(dir, productionID)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, productionID)
	}
	return &Lock{path: path, lock: lock}, nil
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	_ = os.Remove(l.path)
	return nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }
