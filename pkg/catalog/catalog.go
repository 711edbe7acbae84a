// Package catalog implements the Local Catalog Index: a disposable,
// read-optimized DuckDB view over every story's progress.json, grounded
// on kerbaras-mangas/pkg/data/duckdb.go's sql.DB-over-DuckDB pattern.
// It serves generate-report's cross-story aggregate queries (the report
// command rebuilds it from every progress file before each report) and
// offers StaleCloudFiles over cloud_backup_status; cloud-backup reads
// the progress files directly and does not query the catalog. It is
// never consulted by the Reconciler:
// pkg/progress and the on-disk files remain the sole source of truth,
// and Rebuild can always regenerate this file from them.
package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/joskode/wna/pkg/progress"
)

// Catalog wraps the catalog.duckdb connection.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens <workspace>/catalog.duckdb and ensures its
// schema exists.
func Open(workspace string) (*Catalog, error) {
	path := filepath.Join(workspace, "catalog.duckdb")

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Catalog{db: db}, nil
}

func createSchema(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS stories (
			permanent_id VARCHAR PRIMARY KEY,
			effective_title VARCHAR,
			original_author VARCHAR,
			total_chapters INTEGER,
			active_chapters INTEGER,
			archived_chapters INTEGER,
			failed_chapters INTEGER,
			last_updated_timestamp TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cloud_files (
			permanent_id VARCHAR,
			local_path VARCHAR,
			remote_name VARCHAR,
			last_uploaded_at TIMESTAMP,
			remote_modified_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cloud_files_permanent_id ON cloud_files(permanent_id)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("catalog: create schema: %w", err)
		}
	}
	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Rebuild truncates and repopulates the catalog from every
// archival_status/*/progress.json under workspace. It is always safe
// to delete catalog.duckdb and re-run Rebuild: the result is
// byte-for-byte-equivalent modulo row order.
func Rebuild(workspace string, cat *Catalog) error {
	pattern := filepath.Join(workspace, "archival_status", "*", "progress.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("catalog: glob %s: %w", pattern, err)
	}

	tx, err := cat.db.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin rebuild tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM stories`); err != nil {
		return fmt.Errorf("catalog: clear stories: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM cloud_files`); err != nil {
		return fmt.Errorf("catalog: clear cloud_files: %w", err)
	}

	for _, path := range matches {
		rec, err := readRecord(path)
		if err != nil {
			return fmt.Errorf("catalog: rebuild from %s: %w", path, err)
		}
		if err := insertStory(tx, rec); err != nil {
			return fmt.Errorf("catalog: insert %s: %w", rec.PermanentID, err)
		}
	}

	return tx.Commit()
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

func insertStory(tx *sql.Tx, rec *progress.Record) error {
	var active, archived, failed int
	for _, c := range rec.DownloadedChapters {
		switch c.Status {
		case progress.StatusActive:
			active++
		case progress.StatusArchived:
			archived++
		case progress.StatusFailed:
			failed++
		}
	}

	_, err := tx.Exec(
		`INSERT INTO stories (permanent_id, effective_title, original_author, total_chapters, active_chapters, archived_chapters, failed_chapters, last_updated_timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PermanentID, rec.EffectiveTitle, rec.OriginalAuthor, len(rec.DownloadedChapters), active, archived, failed, rec.LastUpdatedTimestamp,
	)
	if err != nil {
		return err
	}

	for _, f := range rec.CloudBackupStatus.Files {
		if _, err := tx.Exec(
			`INSERT INTO cloud_files (permanent_id, local_path, remote_name, last_uploaded_at, remote_modified_at)
			 VALUES (?, ?, ?, ?, ?)`,
			rec.PermanentID, f.LocalPath, f.RemoteName, f.LastUploadedAt, f.RemoteModifiedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

// StorySummary is one row of the cross-story report query.
type StorySummary struct {
	PermanentID      string
	EffectiveTitle   string
	OriginalAuthor   string
	TotalChapters    int
	ActiveChapters   int
	ArchivedChapters int
	FailedChapters   int
}

// ListStories returns every story's chapter-count summary, ordered by
// title, for generate-report.
func (c *Catalog) ListStories() ([]StorySummary, error) {
	rows, err := c.db.Query(`SELECT permanent_id, effective_title, original_author, total_chapters, active_chapters, archived_chapters, failed_chapters FROM stories ORDER BY effective_title`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list stories: %w", err)
	}
	defer rows.Close()

	var out []StorySummary
	for rows.Next() {
		var s StorySummary
		if err := rows.Scan(&s.PermanentID, &s.EffectiveTitle, &s.OriginalAuthor, &s.TotalChapters, &s.ActiveChapters, &s.ArchivedChapters, &s.FailedChapters); err != nil {
			return nil, fmt.Errorf("catalog: scan story row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StaleCloudFiles returns every cloud_files row whose remote_modified_at
// predates last_uploaded_at. cloud-backup does not call it; its upload
// decision comes from Store.IsRemoteOlder.
func (c *Catalog) StaleCloudFiles() ([]progress.CloudFileStatus, error) {
	rows, err := c.db.Query(`SELECT local_path, remote_name, last_uploaded_at, remote_modified_at FROM cloud_files WHERE remote_modified_at < last_uploaded_at`)
	if err != nil {
		return nil, fmt.Errorf("catalog: stale cloud files: %w", err)
	}
	defer rows.Close()

	var out []progress.CloudFileStatus
	for rows.Next() {
		var f progress.CloudFileStatus
		if err := rows.Scan(&f.LocalPath, &f.RemoteName, &f.LastUploadedAt, &f.RemoteModifiedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan cloud file row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
