package lockfile_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "gatekit/internal/platform/errors"
	"gatekit/internal/platform/lockfile"
)

func TestWithReleasesOnError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	boom := errors.New("boom")
	if err := lockfile.With(path, 50*time.Millisecond, 1, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fn error, got %v", err)
	}
	// The lock must be free again.
	guard, err := lockfile.Acquire(path, 50*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("reacquire after error: %v", err)
	}
	guard.Release()
}

func TestSecondHolderTimesOut(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	guard, err := lockfile.Acquire(path, 50*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer guard.Release()

	if _, err := lockfile.Acquire(path, 20*time.Millisecond, 2); !errors.Is(err, apperrors.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	guard, err := lockfile.Acquire(path, 50*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	guard.Release()
	guard.Release()
}
