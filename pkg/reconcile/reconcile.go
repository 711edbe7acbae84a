// Package reconcile implements the Reconciler (spec.md §4.6): a pure,
// I/O-free diff between a story's source manifest and its persisted
// Progress Record. It is grounded on
// original_source/webnovel_archiver/core/orchestrator.py's
// chapter-reconciliation block, restructured here as a standalone
// function so it can be exhaustively table-tested without a network or
// a filesystem, per spec.md §9 ("exceptions vs outcomes" / explicit
// result values).
package reconcile

import (
	"sort"
	"time"

	"github.com/joskode/wna/pkg/progress"
	"github.com/joskode/wna/pkg/sources"
)

// Flags mirrors the per-run options the Orchestrator threads through to
// reconciliation, spec.md §4.6.
type Flags struct {
	ForceReprocessing  bool
	ChapterLimitForRun int
	ResumeFromURL      string
}

// FileChecker reports whether both of a chapter's on-disk files exist.
// Reconcile stays I/O-free by taking this as a parameter rather than
// touching the filesystem itself; callers wire in a real
// os.Stat-backed implementation, tests wire in a stub.
type FileChecker func(progress.ChapterRecord) bool

// AlwaysPresent is a FileChecker for tests and for callers deliberately
// trusting progress-only state (spec.md §9 Open Question 2, Decision D2).
func AlwaysPresent(progress.ChapterRecord) bool { return true }

// Result is Reconcile's output: the merged, re-sorted record and the
// ordered list of chapters the Download Pool should fetch this run.
type Result struct {
	Record    *progress.Record
	WorkQueue []progress.ChapterRecord

	// LimitStartIndex is the WorkQueue index at and after which the
	// Download Pool's chapter_limit_for_run cap applies; entries before
	// it are exempt from the cap. It is always 0 unless ResumeFromURL
	// is set and ForceReprocessing is false, per Decision D4 below.
	LimitStartIndex int
}

// Reconcile implements spec.md §4.6 steps 1-6. It does not mutate rec;
// it returns a new *progress.Record built from a shallow copy of rec's
// scalar fields and a freshly built DownloadedChapters slice.
//
// Decision D1 (spec.md §9 Open Question 1): force_reprocessing
// preserves download_order and the existing chapter list rather than
// clearing it; every chapter present in the manifest is additionally
// forced into the work queue regardless of its current status.
//
// This implementation also requeues any chapter whose status is not
// `active` when it reappears in the manifest — not just {failed,
// pending} as spec.md §4.6 step 2 enumerates literally — because
// §8's "Order preservation on reappearance" scenario requires an
// `archived` chapter to be re-downloaded (not merely relabeled) on
// reappearance, and a chapter cannot transition to `active` without a
// pool outcome confirming the files are good.
//
// Decision D4 (spec.md §9, resume_from_url semantics): the original
// orchestrator.py never lets resume_from_url suppress reconciliation
// of earlier chapters — it only shifts the manifest index at which
// chapter_limit_for_run starts counting
// (effective_start_idx_for_limit). Every chapter that needs work is
// always enqueued here regardless of ResumeFromURL; the resume point
// is surfaced as Result.LimitStartIndex for the Download Pool to
// apply the cap from, mirroring the Python orchestrator's idx >=
// effective_start_idx_for_limit guard instead of gating enqueueing.
func Reconcile(current *progress.Record, manifest []sources.ChapterStub, flags Flags, fileExists FileChecker, now time.Time) Result {
	if fileExists == nil {
		fileExists = AlwaysPresent
	}

	out := *current
	existing := current.ByURL()
	maxOrder := current.MaxDownloadOrder()
	visited := make(map[string]bool, len(manifest))

	merged := make([]progress.ChapterRecord, 0, len(current.DownloadedChapters)+len(manifest))
	var workQueue []progress.ChapterRecord

	limitStartIndex := 0
	resumePending := flags.ResumeFromURL != "" && !flags.ForceReprocessing

	for _, stub := range manifest {
		visited[stub.ChapterURL] = true

		if resumePending && stub.ChapterURL == flags.ResumeFromURL {
			limitStartIndex = len(workQueue)
			resumePending = false
		}

		if prior, ok := existing[stub.ChapterURL]; ok {
			chapter := *prior
			chapter.ChapterTitle = stub.ChapterTitle
			chapter.SourceChapterID = stub.SourceChapterID
			chapter.LastCheckedOn = now

			needsWork := flags.ForceReprocessing || chapter.Status != progress.StatusActive || !fileExists(chapter)
			merged = append(merged, chapter)
			if needsWork {
				workQueue = append(workQueue, chapter)
			}
			continue
		}

		chapter := progress.ChapterRecord{
			SourceChapterID: stub.SourceChapterID,
			ChapterURL:      stub.ChapterURL,
			ChapterTitle:    stub.ChapterTitle,
			DownloadOrder:   maxOrder + 1,
			Status:          progress.StatusPending,
			FirstSeenOn:     now,
			LastCheckedOn:   now,
		}
		maxOrder++
		merged = append(merged, chapter)
		workQueue = append(workQueue, chapter)
	}

	for url, prior := range existing {
		if visited[url] {
			continue
		}
		chapter := *prior
		chapter.Status = progress.StatusArchived
		chapter.LastCheckedOn = now
		merged = append(merged, chapter)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].DownloadOrder < merged[j].DownloadOrder })

	out.DownloadedChapters = merged
	out.LastDownloadedChapterURL, out.NextChapterToDownloadURL = pointers(merged, manifest, visited)

	return Result{Record: &out, WorkQueue: workQueue, LimitStartIndex: limitStartIndex}
}

// pointers recomputes last_downloaded_chapter_url and
// next_chapter_to_download_url per spec.md §4.6 step 6, walking in the
// *source's* current order (manifest order), not download_order — the
// "Tie-breaks & policies" note in spec.md §4.6 is explicit that source
// order is for pointers and scheduling only.
func pointers(merged []progress.ChapterRecord, manifest []sources.ChapterStub, visited map[string]bool) (lastDownloaded, nextToDownload string) {
	byURL := make(map[string]progress.ChapterRecord, len(merged))
	for _, c := range merged {
		byURL[c.ChapterURL] = c
	}

	for _, stub := range manifest {
		if !visited[stub.ChapterURL] {
			continue
		}
		c, ok := byURL[stub.ChapterURL]
		if !ok {
			continue
		}
		if c.Status == progress.StatusActive {
			lastDownloaded = stub.ChapterURL
		}
	}

	for _, stub := range manifest {
		c, ok := byURL[stub.ChapterURL]
		if !ok {
			continue
		}
		if c.Status != progress.StatusActive {
			return lastDownloaded, stub.ChapterURL
		}
	}
	return lastDownloaded, ""
}
