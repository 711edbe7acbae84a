package cloudstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joskode/wna/pkg/progress"
)

// Report is one story's cloud-backup outcome.
type Report struct {
	PermanentID string
	Uploaded    []string
}

// Backup scans every archival_status/*/progress.json under workspace
// and uploads each story's generated EPUB files to store, recording the
// result back into cloud_backup_status. If storyFilter is non-empty,
// only that permanent_id is backed up. A file is (re-)uploaded when the
// store has no existing copy, when forceFullUpload is set, or when
// IsRemoteOlder reports the local file is newer than what is already
// stored. cloud_backup_status is the only part of the record Backup
// changes, but the record is saved whole through progress.Store.Save:
// every other field is written back as it was read at the start of the
// story's scan, and LastUpdatedTimestamp is restamped.
func Backup(workspace string, store Store, storyFilter string, forceFullUpload bool) ([]Report, error) {
	pattern := filepath.Join(workspace, "archival_status", "*", "progress.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("cloudstore: glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	propStore := progress.NewStore(nil)
	var reports []Report

	for _, path := range matches {
		rec, err := readRecord(path)
		if err != nil {
			return reports, fmt.Errorf("cloudstore: read %s: %w", path, err)
		}
		if storyFilter != "" && rec.PermanentID != storyFilter {
			continue
		}

		folderID, err := store.EnsureFolder(rec.PermanentID, "")
		if err != nil {
			return reports, fmt.Errorf("cloudstore: ensure folder for %s: %w", rec.PermanentID, err)
		}

		var uploaded []string
		rec.CloudBackupStatus.LastAttemptAt = time.Now().UTC()

		for _, f := range rec.LastEpubProcessing.GeneratedEpubFiles {
			shouldUpload, err := needsUpload(store, f.AbsolutePath, folderID, f.Name, forceFullUpload)
			if err != nil {
				return reports, fmt.Errorf("cloudstore: check %s: %w", f.Name, err)
			}
			if !shouldUpload {
				continue
			}

			meta, err := store.Upload(f.AbsolutePath, folderID, f.Name)
			if err != nil {
				return reports, fmt.Errorf("cloudstore: upload %s: %w", f.Name, err)
			}
			updateCloudFileStatus(rec, f.AbsolutePath, f.Name, meta.ModifiedTime)
			uploaded = append(uploaded, f.Name)
		}

		rec.CloudBackupStatus.LastSuccessAt = time.Now().UTC()
		if err := propStore.Save(path, rec); err != nil {
			return reports, fmt.Errorf("cloudstore: save %s: %w", path, err)
		}

		reports = append(reports, Report{PermanentID: rec.PermanentID, Uploaded: uploaded})
	}

	return reports, nil
}

func needsUpload(store Store, localPath, folderID, remoteName string, forceFullUpload bool) (bool, error) {
	if forceFullUpload {
		return true, nil
	}
	existing, err := store.Metadata(folderID, remoteName)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, nil
	}
	return store.IsRemoteOlder(localPath, existing.ModifiedTime)
}

func updateCloudFileStatus(rec *progress.Record, localPath, remoteName string, remoteModifiedAt time.Time) {
	now := time.Now().UTC()
	for i := range rec.CloudBackupStatus.Files {
		if rec.CloudBackupStatus.Files[i].LocalPath == localPath {
			rec.CloudBackupStatus.Files[i].RemoteName = remoteName
			rec.CloudBackupStatus.Files[i].LastUploadedAt = now
			rec.CloudBackupStatus.Files[i].RemoteModifiedAt = remoteModifiedAt
			return
		}
	}
	rec.CloudBackupStatus.Files = append(rec.CloudBackupStatus.Files, progress.CloudFileStatus{
		LocalPath:        localPath,
		RemoteName:       remoteName,
		LastUploadedAt:   now,
		RemoteModifiedAt: remoteModifiedAt,
	})
}

func readRecord(path string) (*progress.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec progress.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
