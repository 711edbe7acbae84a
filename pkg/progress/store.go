package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joskode/wna/pkg/atomicfile"
)

// Store loads and saves Progress Records under
// <workspace>/archival_status/<slug>/progress.json. The caller (the Path
// Resolver) is responsible for knowing the current slug for a
// permanent_id; Store only deals in file paths.
type Store struct {
	logger *logrus.Entry
}

func NewStore(logger *logrus.Entry) *Store {
	return &Store{logger: logger}
}

// PathFor returns the progress file path for a story folder.
func PathFor(workspace, slug string) string {
	return filepath.Join(workspace, "archival_status", slug, "progress.json")
}

// Load reads the progress file at path, returning a fresh Record if it
// does not exist. A record written under a pre-status schema is migrated
// in place: a .bak sibling is written first, then every chapter is
// upgraded to the current schema.
func (s *Store) Load(path, permanentID, storyURL string) (*Record, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(permanentID, storyURL), nil
	}
	if err != nil {
		return nil, fmt.Errorf("progress: read %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("progress: parse %s: %w", path, err)
	}

	if rec.DownloadedChapters == nil {
		rec.DownloadedChapters = []ChapterRecord{}
	}

	needsMigration := rec.SchemaVersion < CurrentSchemaVersion
	for _, c := range rec.DownloadedChapters {
		if c.Status == "" || c.FirstSeenOn.IsZero() || c.LastCheckedOn.IsZero() {
			needsMigration = true
			break
		}
	}
	if needsMigration {
		if err := s.migrate(path, &rec); err != nil {
			return nil, fmt.Errorf("progress: migrate %s: %w", path, err)
		}
	}

	return &rec, nil
}

// migrate upgrades a legacy record in place. It is triggered by a
// SchemaVersion below CurrentSchemaVersion OR by any chapter missing a
// Status/FirstSeenOn/LastCheckedOn (the legacy shape this module was
// grounded against never carried those fields at all).
func (s *Store) migrate(path string, rec *Record) error {
	if data, err := os.ReadFile(path); err == nil {
		bakPath := path + ".bak"
		if err := os.WriteFile(bakPath, data, 0o644); err != nil {
			return fmt.Errorf("write backup %s: %w", bakPath, err)
		}
	}

	fallback := time.Unix(0, 0).UTC()
	if info, err := os.Stat(path); err == nil {
		fallback = info.ModTime().UTC()
	}

	for i := range rec.DownloadedChapters {
		c := &rec.DownloadedChapters[i]
		if c.Status == "" {
			c.Status = StatusActive
		}
		if c.FirstSeenOn.IsZero() {
			c.FirstSeenOn = fallback
		}
		if c.LastCheckedOn.IsZero() {
			c.LastCheckedOn = fallback
		}
	}

	rec.SchemaVersion = CurrentSchemaVersion
	if s.logger != nil {
		s.logger.WithField("path", path).Warn("progress: migrated legacy schema")
	}
	return nil
}

// Save atomically writes rec to path. Readers never observe a
// half-written record (spec.md invariant 6).
func (s *Store) Save(path string, rec *Record) error {
	rec.LastUpdatedTimestamp = time.Now().UTC()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("progress: marshal: %w", err)
	}
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return fmt.Errorf("progress: save %s: %w", path, err)
	}
	return nil
}
