// Package index owns the workspace-wide Story Index: the mapping from
// permanent_id to the story's current folder slug (spec.md §3/§4.4).
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/joskode/wna/pkg/atomicfile"
)

type entry struct {
	PermanentID string `json:"permanent_id"`
	FolderSlug  string `json:"folder_slug"`
}

// Index is the in-memory mapping, single-writer per spec.md §5 ("a single
// logical run is assumed to hold an advisory file lock"). The mutex guards
// against accidental concurrent use within a process; it is not a
// substitute for the cross-process workspace lock.
type Index struct {
	mu   sync.Mutex
	path string
	m    map[string]string // permanent_id -> slug
}

// Load reads the index file at path, or returns an empty Index if it
// does not exist yet (created lazily on first Save).
func Load(path string) (*Index, error) {
	idx := &Index{path: path, m: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: read %s: %w", path, err)
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("index: parse %s: %w", path, err)
	}
	for _, e := range entries {
		idx.m[e.PermanentID] = e.FolderSlug
	}
	return idx, nil
}

// Lookup returns the slug for permanentID, and whether it was found.
func (idx *Index) Lookup(permanentID string) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	slug, ok := idx.m[permanentID]
	return slug, ok
}

// Set registers or updates the slug for permanentID and persists the
// index. Serialization uses deterministic (sorted) key ordering per
// spec.md §6.
func (idx *Index) Set(permanentID, slug string) error {
	idx.mu.Lock()
	idx.m[permanentID] = slug
	err := idx.saveLocked()
	idx.mu.Unlock()
	return err
}

// Remove deletes a mapping (used by the migration command when
// collapsing legacy entries).
func (idx *Index) Remove(permanentID string) error {
	idx.mu.Lock()
	delete(idx.m, permanentID)
	err := idx.saveLocked()
	idx.mu.Unlock()
	return err
}

// Snapshot returns a copy of the current mapping.
func (idx *Index) Snapshot() map[string]string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make(map[string]string, len(idx.m))
	for k, v := range idx.m {
		out[k] = v
	}
	return out
}

func (idx *Index) saveLocked() error {
	ids := make([]string, 0, len(idx.m))
	for id := range idx.m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, entry{PermanentID: id, FolderSlug: idx.m[id]})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("index: marshal: %w", err)
	}
	if err := atomicfile.Write(idx.path, data, 0o644); err != nil {
		return fmt.Errorf("index: save %s: %w", idx.path, err)
	}
	return nil
}
