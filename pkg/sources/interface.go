// Package sources implements the Fetcher (spec.md §4.1): a polymorphic
// capability set dispatched by URL host, per spec.md §9's "small
// dispatch table keyed by URL host" design note.
package sources

import "context"

// Metadata is a story's descriptive metadata, spec.md §3.
type Metadata struct {
	Title                        string
	Author                       string
	CoverURL                     string
	Synopsis                     string
	EstimatedTotalChaptersSource int
}

// ChapterStub is the minimal identity returned by manifest discovery.
type ChapterStub struct {
	SourceChapterID string
	ChapterURL      string
	ChapterTitle    string
	SourceOrder     int
}

// Source is the capability set a story's host must implement.
type Source interface {
	// PermanentID derives the source-stable permanent_id from a story
	// URL. Pure; fails with *wnaerr.MalformedURL if extraction fails.
	PermanentID(storyURL string) (string, error)

	// Metadata fetches story-level metadata with one HTTP GET.
	Metadata(ctx context.Context, storyURL string) (Metadata, error)

	// Manifest fetches the ordered chapter list.
	Manifest(ctx context.Context, storyURL string) ([]ChapterStub, error)

	// ChapterBody fetches a chapter's raw HTML body. Returns
	// *wnaerr.ChapterGone if the page is absent (404) or the expected
	// content container cannot be found.
	ChapterBody(ctx context.Context, chapterURL string) (string, error)

	// ProbeNext best-effort discovers the next chapter's URL without a
	// full manifest re-fetch. found is false if none could be
	// determined.
	ProbeNext(ctx context.Context, chapterURL string) (next string, found bool, err error)

	// SiteName identifies this source for the HTML Cleaner's per-source
	// selector table (spec.md §4.2).
	SiteName() string
}
