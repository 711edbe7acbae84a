package restore

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/joskode/wna/pkg/progress"
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

// writeTestEpub builds a minimal zip archive at workspace/ebooks/<slug>/story.epub
// with the given chapter bodies laid out the way go-shiori/go-epub names
// its sections, plus a nav.xhtml that must be ignored as structural.
func writeTestEpub(t *testing.T, workspace, slug string, chapterBodies []string) string {
	t.Helper()
	dir := filepath.Join(workspace, "ebooks", slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "story.epub")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	add := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	add("OEBPS/nav.xhtml", "<html><body>nav</body></html>")
	for i, body := range chapterBodies {
		add(sectionName(i+1), body)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func sectionName(n int) string {
	return fmt.Sprintf("OEBPS/section%04d.xhtml", n)
}

func recordWithChapters(n int) *progress.Record {
	rec := progress.New("royalroad-1", "https://example.test/1")
	rec.EffectiveTitle = "My Story"
	for i := 1; i <= n; i++ {
		rec.DownloadedChapters = append(rec.DownloadedChapters, progress.ChapterRecord{
			ChapterURL:             fmt.Sprintf("u/%d", i),
			DownloadOrder:          i,
			Status:                 progress.StatusActive,
			LocalProcessedFilename: fmt.Sprintf("chapter_%d_clean.html", i),
		})
	}
	return rec
}

func TestRun_RestoresEveryChapterOnExactCountMatch(t *testing.T) {
	workspace := t.TempDir()
	rec := recordWithChapters(3)
	writeProgress(t, workspace, "my-story", rec)
	writeTestEpub(t, workspace, "my-story", []string{"<p>One.</p>", "<p>Two.</p>", "<p>Three.</p>"})

	reports, err := Run(workspace, "", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	r := reports[0]
	if r.RestoredFiles != 3 || r.SkippedReason != "" {
		t.Fatalf("report = %+v, want 3 restored files and no skip reason", r)
	}

	for i := 1; i <= 3; i++ {
		path := filepath.Join(workspace, "processed_content", "my-story", fmt.Sprintf("chapter_%d_clean.html", i))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("restored file missing: %v", err)
		}
	}

	body, err := os.ReadFile(filepath.Join(workspace, "processed_content", "my-story", "chapter_1_clean.html"))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "<p>One.</p>" {
		t.Errorf("chapter 1 body = %q, want <p>One.</p>", body)
	}
}

func TestRun_ChapterCountMismatchSkipsWholeStory(t *testing.T) {
	workspace := t.TempDir()
	rec := recordWithChapters(3)
	writeProgress(t, workspace, "my-story", rec)
	writeTestEpub(t, workspace, "my-story", []string{"<p>One.</p>", "<p>Two.</p>"}) // only 2, progress says 3

	reports, err := Run(workspace, "", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(reports) != 1 || reports[0].SkippedReason == "" {
		t.Fatalf("report = %+v, want a skip reason on chapter count mismatch", reports)
	}
	if reports[0].RestoredFiles != 0 {
		t.Errorf("RestoredFiles = %d, want 0 on a refused partial restore", reports[0].RestoredFiles)
	}

	entries, _ := os.ReadDir(filepath.Join(workspace, "processed_content", "my-story"))
	if len(entries) != 0 {
		t.Errorf("no files should be written on a mismatch, found %d", len(entries))
	}
}

func TestRun_NoEpubFoundSkipsStory(t *testing.T) {
	workspace := t.TempDir()
	rec := recordWithChapters(1)
	writeProgress(t, workspace, "no-epub-story", rec)

	reports, err := Run(workspace, "", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(reports) != 1 || reports[0].SkippedReason == "" {
		t.Fatalf("report = %+v, want a skip reason when no epub exists", reports)
	}
}

func TestRun_StoryFilterLimitsScope(t *testing.T) {
	workspace := t.TempDir()
	writeProgress(t, workspace, "story-a", recordWithChapters(1))
	writeProgress(t, workspace, "story-b", recordWithChapters(1))
	writeTestEpub(t, workspace, "story-a", []string{"<p>A.</p>"})
	writeTestEpub(t, workspace, "story-b", []string{"<p>B.</p>"})

	reports, err := Run(workspace, "royalroad-1", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Both records share permanent_id "royalroad-1" by construction here,
	// so the filter should still restore both; the filter narrows by
	// permanent_id, not by slug.
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2 (filter matched both, same permanent_id)", len(reports))
	}
}

func TestRun_EmptyDownloadedChaptersIsSkipped(t *testing.T) {
	workspace := t.TempDir()
	rec := progress.New("royalroad-1", "https://example.test/1")
	writeProgress(t, workspace, "empty-story", rec)

	reports, err := Run(workspace, "", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(reports) != 1 || reports[0].SkippedReason == "" {
		t.Fatalf("report = %+v, want a skip reason for a record with no chapters", reports)
	}
}
