// Package atomicfile implements the write-temp-then-rename primitive used
// by every durable store in wna (the Progress Store, the Story Index, the
// per-chapter raw/processed files). Readers of the destination path never
// observe partial content.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write creates tmp in dir (the destination's own directory, so the
// final rename is same-filesystem and therefore atomic on POSIX), writes
// data to it, and renames it onto path.
func Write(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomicfile: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("atomicfile: create temp in %s: %w", dir, err)
	}
	name := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(name)
		return fmt.Errorf("atomicfile: write %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(name)
		return fmt.Errorf("atomicfile: close %s: %w", path, closeErr)
	}

	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)
		return fmt.Errorf("atomicfile: chmod %s: %w", path, err)
	}

	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("atomicfile: rename onto %s: %w", path, err)
	}
	return nil
}
