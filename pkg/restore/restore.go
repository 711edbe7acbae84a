// Package restore implements the `restore` command's disaster-recovery
// path: reconstructing processed_content/<slug>/ from an already-built
// EPUB when those intermediate files were deleted or lost (spec.md §9
// Non-goals scope out *maintaining* processed_content as a durable
// artifact past a run, but say nothing about recovering it — the
// original's restore_from_epubs.py supplements that gap and is kept
// here). An EPUB is just a zip archive, so this reads it with the
// standard library's archive/zip the way simp-lee-epub's ziputil.go
// does, rather than importing a dedicated EPUB parsing library.
package restore

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/joskode/wna/pkg/atomicfile"
	"github.com/joskode/wna/pkg/progress"
)

// excludedStructuralFiles are go-shiori/go-epub's own navigation and
// front-matter pages, never chapter content, mirrored from
// restore_from_epubs.py's excluded_structural_files list.
var excludedStructuralFiles = map[string]bool{
	"nav.xhtml":       true,
	"toc.xhtml":       true,
	"cover.xhtml":     true,
	"titlepage.xhtml": true,
	"copyright.xhtml": true,
	"landmarks.xhtml": true,
	"loitoc.xhtml":    true,
}

// chapterFilePatterns match go-epub's generated section filenames
// (section0001.xhtml, section0002.xhtml, ...), which is what
// pkg/epub.Builder actually emits, as well as the calibre/Sigil-style
// OEBPS/chapter*.xhtml layout restore_from_epubs.py searches for and any
// page under an xhtml/ or html/ folder. A zip entry matching any of the
// three counts as a chapter file, so an EPUB built by an older tool is
// still restorable.
var chapterFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(OEBPS/|OPS/)?section\d+\.xhtml$`),
	regexp.MustCompile(`(?i)^(OEBPS/|OPS/)?(chapter|item|page)\d*\.(xhtml|html)$`),
	regexp.MustCompile(`(?i)^(xhtml|html)/.+\.(xhtml|html)$`),
}

// Report summarizes one story's restore attempt.
type Report struct {
	Slug          string
	PermanentID   string
	RestoredFiles int
	SkippedReason string
}

// Run walks workspace/archival_status/*/progress.json, and for each
// story rewrites the local_processed_filename files its
// downloaded_chapters reference from the story's most recently built
// EPUB in workspace/ebooks/, whether or not those files are still on
// disk. If
// storyFilter is non-empty, only that permanent_id is considered.
//
// A story is skipped (not failed) whenever recovery is ambiguous:
// missing progress data, no EPUB found, or a chapter count mismatch
// between progress.json and the EPUB's chapter files — exactly
// restore_from_epubs.py's behavior, because a partial restore under
// ambiguity risks silently mislabeling chapter content.
func Run(workspace, storyFilter string, log *logrus.Entry) ([]Report, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	pattern := filepath.Join(workspace, "archival_status", "*", "progress.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("restore: glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	var reports []Report
	for _, path := range matches {
		slug := filepath.Base(filepath.Dir(path))
		rec, err := readRecord(path)
		if err != nil {
			log.WithField("path", path).WithError(err).Warn("restore: unreadable progress.json, skipping story")
			reports = append(reports, Report{Slug: slug, SkippedReason: "unreadable progress.json"})
			continue
		}
		if storyFilter != "" && rec.PermanentID != storyFilter {
			continue
		}

		report := restoreStory(workspace, slug, rec, log)
		reports = append(reports, report)
	}
	return reports, nil
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

func restoreStory(workspace, slug string, rec *progress.Record, log *logrus.Entry) Report {
	report := Report{Slug: slug, PermanentID: rec.PermanentID}
	logEntry := log.WithField("story", slug)

	if len(rec.DownloadedChapters) == 0 {
		report.SkippedReason = "no downloaded_chapters recorded"
		logEntry.Warn(report.SkippedReason)
		return report
	}

	epubPath, err := findEpub(workspace, slug, rec.EffectiveTitle)
	if err != nil {
		report.SkippedReason = err.Error()
		logEntry.Warn(report.SkippedReason)
		return report
	}

	zr, err := zip.OpenReader(epubPath)
	if err != nil {
		report.SkippedReason = fmt.Sprintf("bad epub archive %s: %v", epubPath, err)
		logEntry.Warn(report.SkippedReason)
		return report
	}
	defer zr.Close()

	chapterFiles := chapterFilesIn(&zr.Reader)
	if len(chapterFiles) == 0 {
		report.SkippedReason = fmt.Sprintf("no recognizable chapter files inside %s", epubPath)
		logEntry.Warn(report.SkippedReason)
		return report
	}
	if len(chapterFiles) != len(rec.DownloadedChapters) {
		report.SkippedReason = fmt.Sprintf(
			"chapter count mismatch: progress.json has %d, epub has %d — refusing a partial restore",
			len(rec.DownloadedChapters), len(chapterFiles))
		logEntry.Error(report.SkippedReason)
		return report
	}

	destDir := filepath.Join(workspace, "processed_content", slug)
	restored := 0
	for i, chapter := range rec.DownloadedChapters {
		if chapter.LocalProcessedFilename == "" {
			logEntry.WithField("chapter_url", chapter.ChapterURL).Warn("restore: chapter has no local_processed_filename on record, skipping")
			continue
		}

		rc, err := chapterFiles[i].Open()
		if err != nil {
			logEntry.WithField("chapter_url", chapter.ChapterURL).WithError(err).Warn("restore: failed to open chapter entry in epub")
			continue
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			logEntry.WithField("chapter_url", chapter.ChapterURL).WithError(err).Warn("restore: failed to read chapter entry in epub")
			continue
		}

		destPath := filepath.Join(destDir, chapter.LocalProcessedFilename)
		if err := atomicfile.Write(destPath, body, 0o644); err != nil {
			logEntry.WithField("chapter_url", chapter.ChapterURL).WithError(err).Warn("restore: failed to write restored chapter file")
			continue
		}
		restored++
	}

	report.RestoredFiles = restored
	switch {
	case restored == len(rec.DownloadedChapters):
		logEntry.WithField("restored", restored).Info("restore: fully recovered processed_content")
	case restored > 0:
		logEntry.WithField("restored", restored).Warn("restore: partially recovered processed_content")
	default:
		report.SkippedReason = "no chapter files could be written"
	}
	return report
}

// findEpub locates the source EPUB for a story: first any .epub file
// directly under workspace/ebooks/<slug>/ (where pkg/epub.Builder
// writes by default), then a loose workspace/ebooks/<sanitized
// title>.epub as a fallback for manually relocated files, mirroring
// restore_from_epubs.py's two-strategy search.
func findEpub(workspace, slug, effectiveTitle string) (string, error) {
	storyDir := filepath.Join(workspace, "ebooks", slug)
	matches, err := filepath.Glob(filepath.Join(storyDir, "*.epub"))
	if err == nil && len(matches) > 0 {
		sort.Strings(matches)
		return matches[0], nil
	}

	if effectiveTitle != "" {
		fallback := filepath.Join(workspace, "ebooks", effectiveTitle+".epub")
		if _, err := os.Stat(fallback); err == nil {
			return fallback, nil
		}
	}

	return "", fmt.Errorf("no epub found under %s or a title-named fallback", storyDir)
}

// chapterFilesIn returns the zip entries that look like chapter
// content, sorted by name (go-epub, like most EPUB writers, numbers
// sections so lexical order is reading order), excluding known
// structural pages.
func chapterFilesIn(zr *zip.Reader) []*zip.File {
	var candidates []*zip.File
	for _, f := range zr.File {
		base := filepath.Base(f.Name)
		if excludedStructuralFiles[base] {
			continue
		}
		for _, pat := range chapterFilePatterns {
			if pat.MatchString(f.Name) {
				candidates = append(candidates, f)
				break
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	return candidates
}
