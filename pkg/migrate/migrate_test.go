package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joskode/wna/pkg/index"
	"github.com/joskode/wna/pkg/progress"
	"github.com/joskode/wna/pkg/sources"
)

func writeProgress(t *testing.T, workspace, slug string, rec *progress.Record) string {
	t.Helper()
	dir := filepath.Join(workspace, "archival_status", slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "progress.json")
	store := progress.NewStore(nil)
	if err := store.Save(path, rec); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRoyalRoadLegacyID_RewritesNumericID(t *testing.T) {
	workspace := t.TempDir()

	rec := progress.New("12345", "https://www.royalroad.com/fiction/12345/test")
	rec.EffectiveTitle = "Legacy Story"
	path := writeProgress(t, workspace, "legacy-story", rec)

	idxPath := filepath.Join(workspace, "index.json")
	idx, err := index.Load(idxPath)
	if err != nil {
		t.Fatalf("index.Load() error = %v", err)
	}
	if err := idx.Set("12345", "legacy-story"); err != nil {
		t.Fatal(err)
	}

	reports, err := RoyalRoadLegacyID(workspace, idx, "", nil)
	if err != nil {
		t.Fatalf("RoyalRoadLegacyID() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	if reports[0].OldID != "12345" || reports[0].NewID != "royalroad-12345" {
		t.Errorf("report = %+v, want old=12345 new=royalroad-12345", reports[0])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !contains(string(data), `"permanent_id": "royalroad-12345"`) {
		t.Errorf("progress.json was not rewritten with the new permanent_id:\n%s", data)
	}

	if _, found := idx.Lookup("12345"); found {
		t.Error("legacy index entry should be removed after migration")
	}
	if slug, found := idx.Lookup("royalroad-12345"); !found || slug != "legacy-story" {
		t.Errorf("index should map royalroad-12345 -> legacy-story, got %q found=%v", slug, found)
	}
}

func TestRoyalRoadLegacyID_SkipsAlreadyMigrated(t *testing.T) {
	workspace := t.TempDir()

	rec := progress.New("royalroad-999", "https://www.royalroad.com/fiction/999/test")
	writeProgress(t, workspace, "already-migrated", rec)

	idx, err := index.Load(filepath.Join(workspace, "index.json"))
	if err != nil {
		t.Fatal(err)
	}

	reports, err := RoyalRoadLegacyID(workspace, idx, "", nil)
	if err != nil {
		t.Fatalf("RoyalRoadLegacyID() error = %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("got %d reports, want 0 for an already-migrated record", len(reports))
	}
}

func TestRoyalRoadLegacyID_StoryFilterLimitsScope(t *testing.T) {
	workspace := t.TempDir()

	rec1 := progress.New("111", "https://www.royalroad.com/fiction/111/a")
	rec2 := progress.New("222", "https://www.royalroad.com/fiction/222/b")
	writeProgress(t, workspace, "story-a", rec1)
	writeProgress(t, workspace, "story-b", rec2)

	idx, err := index.Load(filepath.Join(workspace, "index.json"))
	if err != nil {
		t.Fatal(err)
	}

	reports, err := RoyalRoadLegacyID(workspace, idx, "222", nil)
	if err != nil {
		t.Fatalf("RoyalRoadLegacyID() error = %v", err)
	}
	if len(reports) != 1 || reports[0].OldID != "222" {
		t.Fatalf("reports = %+v, want only story 222 migrated", reports)
	}
}

func TestRoyalRoadLegacyID_MismatchAgainstSourceAborts(t *testing.T) {
	workspace := t.TempDir()

	rec := progress.New("555", "https://www.royalroad.com/fiction/555/test")
	writeProgress(t, workspace, "mismatch-story", rec)

	idx, err := index.Load(filepath.Join(workspace, "index.json"))
	if err != nil {
		t.Fatal(err)
	}

	dispatch := sources.NewDispatch(0)
	dispatch.Register("www.royalroad.com", &fakeMismatchedSource{})

	if _, err := RoyalRoadLegacyID(workspace, idx, "", dispatch); err == nil {
		t.Error("RoyalRoadLegacyID() should fail when the Source disagrees with the heuristic ID")
	}
}

type fakeMismatchedSource struct{}

func (f *fakeMismatchedSource) PermanentID(storyURL string) (string, error) {
	return "royalroad-not-what-we-expect", nil
}

func (f *fakeMismatchedSource) Metadata(ctx context.Context, storyURL string) (sources.Metadata, error) {
	return sources.Metadata{}, nil
}

func (f *fakeMismatchedSource) Manifest(ctx context.Context, storyURL string) ([]sources.ChapterStub, error) {
	return nil, nil
}

func (f *fakeMismatchedSource) ChapterBody(ctx context.Context, chapterURL string) (string, error) {
	return "", nil
}

func (f *fakeMismatchedSource) ProbeNext(ctx context.Context, chapterURL string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeMismatchedSource) SiteName() string {
	return "royalroad"
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
