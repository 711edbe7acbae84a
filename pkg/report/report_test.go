package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joskode/wna/pkg/catalog"
	"github.com/joskode/wna/pkg/progress"
)

func writeProgress(t *testing.T, workspace, slug string, rec *progress.Record) {
	t.Helper()
	dir := filepath.Join(workspace, "archival_status", slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	store := progress.NewStore(nil)
	if err := store.Save(filepath.Join(dir, "progress.json"), rec); err != nil {
		t.Fatal(err)
	}
}

func TestRender_ProducesTableWithStoryData(t *testing.T) {
	workspace := t.TempDir()

	rec := progress.New("royalroad-1", "https://royalroad.com/fiction/1/test")
	rec.EffectiveTitle = "My Story"
	rec.OriginalAuthor = "An Author"
	rec.DownloadedChapters = []progress.ChapterRecord{
		{ChapterURL: "u/1", DownloadOrder: 1, Status: progress.StatusActive},
		{ChapterURL: "u/2", DownloadOrder: 2, Status: progress.StatusFailed},
	}
	writeProgress(t, workspace, "my-story", rec)

	cat, err := catalog.Open(workspace)
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	defer cat.Close()
	if err := catalog.Rebuild(workspace, cat); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	outPath := filepath.Join(workspace, "report.html")
	if err := Render(cat, outPath); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	html := string(data)
	if !strings.Contains(html, "My Story") {
		t.Error("report should contain the story title")
	}
	if !strings.Contains(html, "An Author") {
		t.Error("report should contain the author")
	}
	if !strings.Contains(html, `class="failed"`) {
		t.Error("report should flag the failed chapter count")
	}
}

func TestRender_EmptyCatalogProducesValidPage(t *testing.T) {
	workspace := t.TempDir()

	cat, err := catalog.Open(workspace)
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	defer cat.Close()
	if err := catalog.Rebuild(workspace, cat); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	outPath := filepath.Join(workspace, "report.html")
	if err := Render(cat, outPath); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("report file should exist even with no stories: %v", err)
	}
}
