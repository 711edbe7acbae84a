// Package pathresolver maps (workspace, permanent story ID) pairs onto
// the four per-story directory trees (spec.md §4.4), consulting the
// Story Index and renaming directories on title change.
package pathresolver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joskode/wna/pkg/index"
)

// storyDirs are the four per-story trees that move together on rename.
var storyDirs = []string{"archival_status", "raw_content", "processed_content", "ebooks"}

// Resolver holds a handle to the Story Index by reference; its lifetime
// is one run (spec.md §9).
type Resolver struct {
	workspace string
	idx       *index.Index
}

func New(workspace string, idx *index.Index) *Resolver {
	return &Resolver{workspace: workspace, idx: idx}
}

// PartialRenameError is returned when a composite four-directory rename
// fails partway through. Per spec.md §9, this module does not attempt an
// automatic rollback: re-moving partially-migrated directories risks
// further data loss, and the operator is better positioned to reconcile
// the two slugs by hand.
type PartialRenameError struct {
	PermanentID string
	OldSlug     string
	NewSlug     string
	Moved       []string
	Err         error
}

func (e *PartialRenameError) Error() string {
	return fmt.Sprintf(
		"pathresolver: rename %s from %q to %q: moved %v before failing: %v",
		e.PermanentID, e.OldSlug, e.NewSlug, e.Moved, e.Err,
	)
}

func (e *PartialRenameError) Unwrap() error { return e.Err }

// SetStory implements spec.md §4.4 steps 1-5: compute the slug for the
// current effective title, register it if new, or rename the four
// per-story directories if the title changed. It returns the slug that
// should be used for all directory access in this run.
func (r *Resolver) SetStory(permanentID, effectiveTitle string) (string, error) {
	newSlug := Slugify(effectiveTitle)

	oldSlug, existed := r.idx.Lookup(permanentID)
	if !existed {
		if err := r.ensureDirs(newSlug); err != nil {
			return "", err
		}
		if err := r.idx.Set(permanentID, newSlug); err != nil {
			return "", err
		}
		return newSlug, nil
	}

	if oldSlug == newSlug {
		if err := r.ensureDirs(newSlug); err != nil {
			return "", err
		}
		return newSlug, nil
	}

	moved := make([]string, 0, len(storyDirs))
	for _, base := range storyDirs {
		oldPath := filepath.Join(r.workspace, base, oldSlug)
		newPath := filepath.Join(r.workspace, base, newSlug)

		if _, err := os.Stat(oldPath); os.IsNotExist(err) {
			// Nothing to move for this tree yet; ensure the new one exists.
			if err := os.MkdirAll(newPath, 0o755); err != nil {
				return "", &PartialRenameError{PermanentID: permanentID, OldSlug: oldSlug, NewSlug: newSlug, Moved: moved, Err: err}
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
			return "", &PartialRenameError{PermanentID: permanentID, OldSlug: oldSlug, NewSlug: newSlug, Moved: moved, Err: err}
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			return "", &PartialRenameError{PermanentID: permanentID, OldSlug: oldSlug, NewSlug: newSlug, Moved: moved, Err: err}
		}
		moved = append(moved, base)
	}

	if err := r.idx.Set(permanentID, newSlug); err != nil {
		return "", fmt.Errorf("pathresolver: update index after rename: %w", err)
	}
	return newSlug, nil
}

func (r *Resolver) ensureDirs(slug string) error {
	for _, base := range storyDirs {
		if err := os.MkdirAll(filepath.Join(r.workspace, base, slug), 0o755); err != nil {
			return fmt.Errorf("pathresolver: create %s/%s: %w", base, slug, err)
		}
	}
	return nil
}

// StoryDir returns the path of one of the four per-story trees for slug.
func (r *Resolver) StoryDir(base, slug string) string {
	return filepath.Join(r.workspace, base, slug)
}
