package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore_LoadMissingFileReturnsFreshRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archival_status", "my-story", "progress.json")
	store := NewStore(nil)

	rec, err := store.Load(path, "royalroad-1", "https://example.test/1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.PermanentID != "royalroad-1" || rec.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("Load() on missing file should return New()-equivalent record, got %+v", rec)
	}
}

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	path := PathFor(t.TempDir(), "my-story")
	store := NewStore(nil)

	rec := New("royalroad-1", "https://example.test/1")
	rec.EffectiveTitle = "My Story"
	rec.DownloadedChapters = []ChapterRecord{
		{ChapterURL: "https://example.test/c1", Status: StatusActive, DownloadOrder: 1},
	}

	err := store.Save(path, rec)
	assert.NoError(t, err)
	assert.False(t, rec.LastUpdatedTimestamp.IsZero(), "Save() should stamp LastUpdatedTimestamp")

	loaded, err := store.Load(path, "royalroad-1", "https://example.test/1")
	assert.NoError(t, err)
	assert.Equal(t, "My Story", loaded.EffectiveTitle)
	assert.Len(t, loaded.DownloadedChapters, 1)
	assert.Equal(t, "https://example.test/c1", loaded.DownloadedChapters[0].ChapterURL)
}

func TestStore_LoadMigratesLegacySchema(t *testing.T) {
	path := PathFor(t.TempDir(), "my-story")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	legacy := map[string]interface{}{
		"version":             1,
		"permanent_id":        "royalroad-1",
		"story_url":           "https://example.test/1",
		"downloaded_chapters": []map[string]interface{}{{"chapter_url": "https://example.test/c1"}},
	}
	data, err := json.Marshal(legacy)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(nil)
	rec, err := store.Load(path, "royalroad-1", "https://example.test/1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d after migration", rec.SchemaVersion, CurrentSchemaVersion)
	}
	if rec.DownloadedChapters[0].Status != StatusActive {
		t.Errorf("migrated chapter status = %q, want active", rec.DownloadedChapters[0].Status)
	}
	if rec.DownloadedChapters[0].FirstSeenOn.IsZero() || rec.DownloadedChapters[0].LastCheckedOn.IsZero() {
		t.Error("migration should backfill FirstSeenOn/LastCheckedOn")
	}

	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("migration should leave a .bak backup, stat error = %v", err)
	}
}

func TestStore_SaveIsAtomic(t *testing.T) {
	path := PathFor(t.TempDir(), "my-story")
	store := NewStore(nil)
	rec := New("royalroad-1", "https://example.test/1")

	if err := store.Save(path, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "progress.json" {
			t.Errorf("Save() left a stray file behind: %s", e.Name())
		}
	}
}

func TestStore_SaveStampsUTCTimestamp(t *testing.T) {
	path := PathFor(t.TempDir(), "my-story")
	store := NewStore(nil)
	rec := New("royalroad-1", "https://example.test/1")

	before := time.Now().UTC()
	if err := store.Save(path, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if rec.LastUpdatedTimestamp.Before(before) {
		t.Error("LastUpdatedTimestamp should be set to roughly now")
	}
	if rec.LastUpdatedTimestamp.Location() != time.UTC {
		t.Error("LastUpdatedTimestamp should be stored in UTC")
	}
}
