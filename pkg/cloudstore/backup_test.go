package cloudstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/joskode/wna/pkg/progress"
)

func writeStoryWithEpub(t *testing.T, workspace, slug, permanentID, epubName string) *progress.Record {
	t.Helper()

	dir := filepath.Join(workspace, "archival_status", slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	ebookDir := filepath.Join(workspace, "ebooks", slug)
	if err := os.MkdirAll(ebookDir, 0o755); err != nil {
		t.Fatal(err)
	}
	epubPath := filepath.Join(ebookDir, epubName)
	if err := os.WriteFile(epubPath, []byte("epub bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := progress.New(permanentID, "https://example.test/"+permanentID)
	rec.EffectiveTitle = slug
	rec.LastEpubProcessing = progress.EpubProcessing{
		GeneratedEpubFiles: []progress.EpubFile{{Name: epubName, AbsolutePath: epubPath}},
	}

	if err := progress.NewStore(nil).Save(filepath.Join(dir, "progress.json"), rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestBackup_UploadsNewEpubAndRecordsStatus(t *testing.T) {
	workspace := t.TempDir()
	writeStoryWithEpub(t, workspace, "my-story", "royalroad-1", "My Story.epub")

	store := NewLocalMirror(t.TempDir())
	reports, err := Backup(workspace, store, "", false)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if len(reports) != 1 || len(reports[0].Uploaded) != 1 {
		t.Fatalf("reports = %+v, want one story with one upload", reports)
	}

	data, err := os.ReadFile(filepath.Join(workspace, "archival_status", "my-story", "progress.json"))
	if err != nil {
		t.Fatal(err)
	}
	var rec progress.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.CloudBackupStatus.Files) != 1 {
		t.Fatalf("got %d cloud file records, want 1", len(rec.CloudBackupStatus.Files))
	}
	if rec.CloudBackupStatus.LastSuccessAt.IsZero() {
		t.Error("LastSuccessAt should be set after a successful backup")
	}
}

func TestBackup_SkipsUpToDateFile(t *testing.T) {
	workspace := t.TempDir()
	writeStoryWithEpub(t, workspace, "my-story", "royalroad-1", "My Story.epub")

	store := NewLocalMirror(t.TempDir())
	if _, err := Backup(workspace, store, "", false); err != nil {
		t.Fatalf("first Backup() error = %v", err)
	}

	reports, err := Backup(workspace, store, "", false)
	if err != nil {
		t.Fatalf("second Backup() error = %v", err)
	}
	if len(reports[0].Uploaded) != 0 {
		t.Errorf("second backup should skip an unchanged file, uploaded = %v", reports[0].Uploaded)
	}
}

func TestBackup_ForceFullUploadReuploads(t *testing.T) {
	workspace := t.TempDir()
	writeStoryWithEpub(t, workspace, "my-story", "royalroad-1", "My Story.epub")

	store := NewLocalMirror(t.TempDir())
	if _, err := Backup(workspace, store, "", false); err != nil {
		t.Fatalf("first Backup() error = %v", err)
	}

	reports, err := Backup(workspace, store, "", true)
	if err != nil {
		t.Fatalf("second Backup() error = %v", err)
	}
	if len(reports[0].Uploaded) != 1 {
		t.Errorf("force-full-upload should re-upload, uploaded = %v", reports[0].Uploaded)
	}
}

func TestBackup_StoryFilterLimitsScope(t *testing.T) {
	workspace := t.TempDir()
	writeStoryWithEpub(t, workspace, "story-a", "royalroad-1", "A.epub")
	writeStoryWithEpub(t, workspace, "story-b", "royalroad-2", "B.epub")

	store := NewLocalMirror(t.TempDir())
	reports, err := Backup(workspace, store, "royalroad-2", false)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if len(reports) != 1 || reports[0].PermanentID != "royalroad-2" {
		t.Fatalf("reports = %+v, want only royalroad-2", reports)
	}
}
