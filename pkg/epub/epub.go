// Package epub implements the EPUB Builder (spec.md §4.9): partitions a
// story's chapters into one or more volumes and writes each as an EPUB
// file, reusing github.com/go-shiori/go-epub the way
// kerbaras-mangas/pkg/integrations/epub.go does.
package epub

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	goepub "github.com/go-shiori/go-epub"
	"github.com/sirupsen/logrus"

	"github.com/joskode/wna/pkg/httpclient"
	"github.com/joskode/wna/pkg/progress"
)

// ContentsMode selects which chapters a build includes.
type ContentsMode string

const (
	ContentsAll        ContentsMode = "all"
	ContentsActiveOnly ContentsMode = "active-only"
)

// Options configures one build, spec.md §4.9's inputs.
type Options struct {
	ChaptersPerVolume int
	Contents          ContentsMode
	OutputDir         string
	ProcessedDir      string
}

// Builder assembles EPUB volumes for one story.
type Builder struct {
	HTTPClient *httpclient.Client
	Log        *logrus.Entry
}

func New(client *httpclient.Client, log *logrus.Entry) *Builder {
	return &Builder{HTTPClient: client, Log: log}
}

func (b *Builder) log() *logrus.Entry {
	if b.Log != nil {
		return b.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// chapterTemplate mirrors kerbaras-mangas/pkg/integrations/epub.go's
// chapterTemplate constant, adapted from an image-page layout to prose.
const chapterTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
    <title>{{.Title}}</title>
</head>
<body>
    <h1>{{.Title}}</h1>
    {{.Body}}
</body>
</html>`

const synopsisTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
    <title>Synopsis</title>
</head>
<body>
    <h1>Synopsis</h1>
    <p>{{.}}</p>
</body>
</html>`

type chapterTemplateData struct {
	Title string
	Body  template.HTML
}

// Build runs spec.md §4.9 in full: filter, partition into volumes,
// cover download with fallback, synopsis section, per-chapter sections
// read from processed files, recorded generated-file paths, and temp
// cover cleanup regardless of outcome. The returned EpubFile slice is
// meant to be appended directly to Record.LastEpubProcessing.
func (b *Builder) Build(rec *progress.Record, opts Options) ([]progress.EpubFile, error) {
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("epub: output dir required")
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("epub: create output dir: %w", err)
	}

	chapters := filterChapters(rec.DownloadedChapters, opts.Contents)
	volumes := partition(chapters, opts.ChaptersPerVolume)

	tempDir, err := os.MkdirTemp("", "wna-epub-cover-*")
	if err != nil {
		return nil, fmt.Errorf("epub: create temp cover dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	coverPath := b.downloadCover(rec.CoverImageURL, tempDir)

	var out []progress.EpubFile
	for i, vol := range volumes {
		n := i + 1
		multi := len(volumes) > 1
		file, err := b.buildVolume(rec, vol, n, multi, coverPath, opts.OutputDir, opts.ProcessedDir)
		if err != nil {
			return out, fmt.Errorf("epub: build volume %d: %w", n, err)
		}
		out = append(out, file)
	}
	return out, nil
}

func filterChapters(all []progress.ChapterRecord, mode ContentsMode) []progress.ChapterRecord {
	out := make([]progress.ChapterRecord, 0, len(all))
	for _, c := range all {
		if mode == ContentsActiveOnly && c.Status != progress.StatusActive {
			continue
		}
		out = append(out, c)
	}
	sortByDownloadOrder(out)
	return out
}

func sortByDownloadOrder(chapters []progress.ChapterRecord) {
	for i := 1; i < len(chapters); i++ {
		for j := i; j > 0 && chapters[j].DownloadOrder < chapters[j-1].DownloadOrder; j-- {
			chapters[j], chapters[j-1] = chapters[j-1], chapters[j]
		}
	}
}

// partition splits chapters into volumes of up to perVolume each.
// None/0/>=count all collapse to a single volume, spec.md §4.9.
func partition(chapters []progress.ChapterRecord, perVolume int) [][]progress.ChapterRecord {
	if perVolume <= 0 || perVolume >= len(chapters) {
		if len(chapters) == 0 {
			return [][]progress.ChapterRecord{{}}
		}
		return [][]progress.ChapterRecord{chapters}
	}

	var volumes [][]progress.ChapterRecord
	for start := 0; start < len(chapters); start += perVolume {
		end := start + perVolume
		if end > len(chapters) {
			end = len(chapters)
		}
		volumes = append(volumes, chapters[start:end])
	}
	return volumes
}

func (b *Builder) downloadCover(coverURL, tempDir string) string {
	if coverURL == "" || b.HTTPClient == nil {
		return ""
	}

	status, body, err := b.HTTPClient.Get(context.Background(), coverURL)
	if err != nil || status != 200 || len(body) == 0 {
		b.log().WithField("cover_url", coverURL).WithError(err).Warn("cover download failed, continuing without cover")
		return ""
	}

	ext := extFromContentSniff(body)
	path := filepath.Join(tempDir, "cover"+ext)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		b.log().WithError(err).Warn("failed to stage cover image, continuing without cover")
		return ""
	}
	return path
}

func extFromContentSniff(body []byte) string {
	if len(body) >= 8 && body[0] == 0x89 && body[1] == 'P' && body[2] == 'N' && body[3] == 'G' {
		return ".png"
	}
	return ".jpg"
}

func (b *Builder) buildVolume(rec *progress.Record, chapters []progress.ChapterRecord, n int, multi bool, coverPath, outputDir, processedDir string) (progress.EpubFile, error) {
	title := rec.EffectiveTitle
	id := rec.PermanentID
	if multi {
		title = fmt.Sprintf("%s Vol. %d", rec.EffectiveTitle, n)
		id = fmt.Sprintf("%s_vol_%d", rec.PermanentID, n)
	}

	book, err := goepub.NewEpub(title)
	if err != nil {
		return progress.EpubFile{}, fmt.Errorf("create epub: %w", err)
	}
	book.SetIdentifier(id)
	if rec.OriginalAuthor != "" {
		book.SetAuthor(rec.OriginalAuthor)
	}
	if rec.Synopsis != "" {
		book.SetDescription(rec.Synopsis)
	}
	book.SetLang("en")

	if coverPath != "" {
		internalCover, err := book.AddImage(coverPath, "cover"+filepath.Ext(coverPath))
		if err != nil {
			b.log().WithError(err).Warn("failed to embed cover, continuing without cover")
		} else {
			book.SetCover(internalCover, "")
		}
	}

	if rec.Synopsis != "" {
		html, err := renderTemplate(synopsisTemplate, rec.Synopsis)
		if err == nil {
			if _, err := book.AddSection(html, "Synopsis", "", ""); err != nil {
				b.log().WithError(err).Warn("failed to add synopsis section")
			}
		}
	}

	for _, chapter := range chapters {
		if err := b.addChapterSection(book, chapter, processedDir); err != nil {
			b.log().WithField("chapter_url", chapter.ChapterURL).WithError(err).Warn("skipping chapter missing its processed file")
		}
	}

	safeTitle := sanitizeFilename(rec.EffectiveTitle)
	outName := safeTitle
	if multi {
		outName = fmt.Sprintf("%s_vol_%d", safeTitle, n)
	}
	outPath := filepath.Join(outputDir, outName+".epub")
	if err := book.Write(outPath); err != nil {
		return progress.EpubFile{}, fmt.Errorf("write epub: %w", err)
	}

	abs, err := filepath.Abs(outPath)
	if err != nil {
		abs = outPath
	}
	return progress.EpubFile{Name: filepath.Base(abs), AbsolutePath: abs}, nil
}

func (b *Builder) addChapterSection(book *goepub.Epub, chapter progress.ChapterRecord, processedDir string) error {
	if chapter.LocalProcessedFilename == "" {
		return fmt.Errorf("no processed file recorded")
	}
	content, err := os.ReadFile(filepath.Join(processedDir, chapter.LocalProcessedFilename))
	if err != nil {
		return err
	}

	title := chapter.ChapterTitle
	if chapter.Status == progress.StatusArchived {
		title = "[Archived] " + title
	}

	html, err := renderTemplate(chapterTemplate, chapterTemplateData{Title: title, Body: template.HTML(string(content))})
	if err != nil {
		return err
	}
	_, err = book.AddSection(html, title, "", "")
	return err
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t, err := template.New("epub").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, ch := range invalid {
		result = strings.ReplaceAll(result, ch, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	if result == "" {
		result = "untitled"
	}
	return result
}
