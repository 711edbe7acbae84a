// Package wslock implements the advisory workspace lock spec.md §5
// assumes a single logical run holds for its duration. It wraps
// syscall.Flock directly: no lock-file library appears anywhere in the
// retrieval pack, and POSIX advisory locking is a handful of lines, so
// this is one of the few genuinely stdlib-only pieces of the module
// (see DESIGN.md).
package wslock

import (
	"fmt"
	"os"
	"syscall"
)

// Lock holds an open file descriptor for the duration of a run.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive, non-blocking advisory lock on
// <workspace>/index.json.lock. It fails fast (rather than blocking) if
// another run already holds it, since spec.md treats concurrent runs
// against the same workspace as out of scope rather than something to
// queue behind.
func Acquire(workspace string) (*Lock, error) {
	path := workspace + string(os.PathSeparator) + "index.json.lock"

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wslock: open %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("wslock: workspace %s is locked by another run: %w", workspace, err)
	}

	return &Lock{f: f}, nil
}

// Release drops the lock and closes the underlying file descriptor.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN); err != nil {
		l.f.Close()
		return fmt.Errorf("wslock: unlock: %w", err)
	}
	return l.f.Close()
}
