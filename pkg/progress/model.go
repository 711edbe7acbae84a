// Package progress owns the per-story Progress Record: the durable JSON
// state (spec.md §3) that the Reconciler, Download Pool and EPUB Builder
// read and update across runs.
package progress

import "time"

// ChapterStatus is the lifecycle state of a single chapter record.
type ChapterStatus string

const (
	StatusPending  ChapterStatus = "pending"
	StatusActive   ChapterStatus = "active"
	StatusFailed   ChapterStatus = "failed"
	StatusArchived ChapterStatus = "archived"
)

// CurrentSchemaVersion is bumped whenever the on-disk Record shape
// changes in a way that requires migration on Load.
const CurrentSchemaVersion = 2

// ErrorInfo records the last terminal error for a chapter, if any.
type ErrorInfo struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ChapterRecord is the persisted per-chapter entry, spec.md §3.
type ChapterRecord struct {
	SourceChapterID string        `json:"source_chapter_id"`
	ChapterURL      string        `json:"chapter_url"`
	ChapterTitle    string        `json:"chapter_title"`
	DownloadOrder   int           `json:"download_order"`
	Status          ChapterStatus `json:"status"`

	FirstSeenOn     time.Time `json:"first_seen_on"`
	LastCheckedOn   time.Time `json:"last_checked_on"`
	DownloadTimestamp time.Time `json:"download_timestamp,omitempty"`

	LocalRawFilename       string `json:"local_raw_filename,omitempty"`
	LocalProcessedFilename string `json:"local_processed_filename,omitempty"`

	ErrorInfo *ErrorInfo `json:"error_info,omitempty"`
}

// IsComplete reports whether the record has both the local files an
// active chapter is required to have (spec.md invariant 4).
func (c *ChapterRecord) IsComplete() bool {
	return c.LocalRawFilename != "" && c.LocalProcessedFilename != ""
}

// EpubFile is one emitted EPUB volume, recorded back into progress by
// the EPUB Builder.
type EpubFile struct {
	Name         string `json:"name"`
	AbsolutePath string `json:"absolute_path"`
}

// EpubProcessing records the outcome of the most recent EPUB build.
type EpubProcessing struct {
	Timestamp          time.Time  `json:"timestamp"`
	GeneratedEpubFiles []EpubFile `json:"generated_epub_files"`
}

// CloudFileStatus is the per-file upload record inside CloudBackupStatus.
type CloudFileStatus struct {
	LocalPath        string    `json:"local_path"`
	RemoteName       string    `json:"remote_name"`
	LastUploadedAt   time.Time `json:"last_uploaded_at"`
	RemoteModifiedAt time.Time `json:"remote_modified_at"`
}

// CloudBackupStatus is owned jointly by the archive run and the
// cloud-backup command; the archive run must not clobber fields it did
// not itself change (spec.md §9 Open Questions).
type CloudBackupStatus struct {
	LastAttemptAt time.Time         `json:"last_attempt_at,omitempty"`
	LastSuccessAt time.Time         `json:"last_success_at,omitempty"`
	Files         []CloudFileStatus `json:"files,omitempty"`
}

// Record is the full per-story Progress Record, spec.md §3.
type Record struct {
	SchemaVersion int `json:"version"`

	PermanentID                  string `json:"permanent_id"`
	StoryURL                     string `json:"story_url"`
	OriginalTitle                string `json:"original_title"`
	EffectiveTitle                string `json:"effective_title"`
	OriginalAuthor                string `json:"original_author"`
	CoverImageURL                  string `json:"cover_image_url"`
	Synopsis                       string `json:"synopsis"`
	EstimatedTotalChaptersSource   int    `json:"estimated_total_chapters_source"`

	DownloadedChapters []ChapterRecord `json:"downloaded_chapters"`

	LastDownloadedChapterURL  string `json:"last_downloaded_chapter_url,omitempty"`
	NextChapterToDownloadURL  string `json:"next_chapter_to_download_url,omitempty"`

	LastEpubProcessing EpubProcessing    `json:"last_epub_processing"`
	CloudBackupStatus  CloudBackupStatus `json:"cloud_backup_status"`

	LastUpdatedTimestamp time.Time `json:"last_updated_timestamp"`
}

// New returns a fresh Record for a story not yet seen.
func New(permanentID, storyURL string) *Record {
	return &Record{
		SchemaVersion:      CurrentSchemaVersion,
		PermanentID:        permanentID,
		StoryURL:           storyURL,
		DownloadedChapters: []ChapterRecord{},
	}
}

// ByURL indexes the record's chapters by URL, spec.md §4.6 step 1.
func (r *Record) ByURL() map[string]*ChapterRecord {
	out := make(map[string]*ChapterRecord, len(r.DownloadedChapters))
	for i := range r.DownloadedChapters {
		out[r.DownloadedChapters[i].ChapterURL] = &r.DownloadedChapters[i]
	}
	return out
}

// MaxDownloadOrder returns the highest download_order currently assigned,
// or 0 if there are no chapters yet.
func (r *Record) MaxDownloadOrder() int {
	max := 0
	for _, c := range r.DownloadedChapters {
		if c.DownloadOrder > max {
			max = c.DownloadOrder
		}
	}
	return max
}
