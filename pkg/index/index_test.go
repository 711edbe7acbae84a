package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileReturnsEmptyIndex(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "index.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := idx.Lookup("royalroad-1"); ok {
		t.Error("fresh index should have no entries")
	}
}

func TestSetAndLookup(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "index.json"))
	if err != nil {
		t.Fatal(err)
	}

	if err := idx.Set("royalroad-1", "my-story"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	slug, ok := idx.Lookup("royalroad-1")
	if !ok || slug != "my-story" {
		t.Errorf("Lookup() = (%q, %v), want (my-story, true)", slug, ok)
	}
}

func TestSet_PersistsAcrossLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")

	idx, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Set("royalroad-1", "my-story"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	slug, ok := reloaded.Lookup("royalroad-1")
	if !ok || slug != "my-story" {
		t.Errorf("reloaded Lookup() = (%q, %v), want (my-story, true)", slug, ok)
	}
}

func TestRemove(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "index.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Set("royalroad-1", "my-story"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Remove("royalroad-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := idx.Lookup("royalroad-1"); ok {
		t.Error("entry should be gone after Remove()")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "index.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Set("royalroad-1", "my-story"); err != nil {
		t.Fatal(err)
	}

	snap := idx.Snapshot()
	snap["royalroad-1"] = "mutated"

	slug, _ := idx.Lookup("royalroad-1")
	if slug != "my-story" {
		t.Error("mutating the Snapshot() result should not affect the Index")
	}
}

func TestSave_WritesDeterministicSortedOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	idx, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Set("royalroad-2", "z-story"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Set("royalroad-1", "a-story"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	first := strings.Index(string(data), "royalroad-1")
	second := strings.Index(string(data), "royalroad-2")
	if first == -1 || second == -1 || first > second {
		t.Errorf("expected royalroad-1 to be serialized before royalroad-2, got raw:\n%s", data)
	}
}
