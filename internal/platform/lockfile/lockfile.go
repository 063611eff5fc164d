// Package lockfile guards cross-process read-modify-write sequences on
// state files with an advisory lock and bounded-retry acquisition.
package lockfile

import (
	"fmt"
	"time"

	"github.com/gofrs/flock"

	apperrors "gatekit/internal/platform/errors"
)

const (
	DefaultTimeout = time.Second
	DefaultRetries = 4
)

// Guard holds an acquired advisory lock until Release is called.
type Guard struct {
	lock *flock.Flock
}

// Acquire locks the sibling lock file for path. Each attempt waits at most
// timeout; after retries failed attempts it gives up with ErrLockTimeout.
func Acquire(path string, timeout time.Duration, retries int) (*Guard, error) {
	lock := flock.New(path + ".lock")
	for attempt := 0; attempt < retries; attempt++ {
		locked, err := tryLockOnce(lock, timeout)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
		}
		if locked {
			return &Guard{lock: lock}, nil
		}
	}
	return nil, fmt.Errorf("lock %s after %d attempts: %w", lock.Path(), retries, apperrors.ErrLockTimeout)
}

func tryLockOnce(lock *flock.Flock, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		locked, err := lock.TryLock()
		if err != nil || locked {
			return locked, err
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(timeout / 20)
	}
}

func (g *Guard) Release() {
	if g == nil || g.lock == nil {
		return
	}
	_ = g.lock.Unlock()
	g.lock = nil
}

// With runs fn while holding the lock for path, releasing on every exit path.
func With(path string, timeout time.Duration, retries int, fn func() error) error {
	guard, err := Acquire(path, timeout, retries)
	if err != nil {
		return err
	}
	defer guard.Release()
	return fn()
}
