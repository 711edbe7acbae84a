// Package orchestrator wires the Fetcher, Reconciler, Download Pool and
// EPUB Builder together for one archive run per story, the way
// kerbaras-mangas/pkg/services/controller.go's MangaController wires its
// source, repository and downloader behind a single entry point. Unlike
// the teacher's controller, a run here is a single linear pipeline with
// no independent query methods: resolve, reconcile, download, build,
// persist, optionally clean up.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joskode/wna/pkg/download"
	"github.com/joskode/wna/pkg/epub"
	"github.com/joskode/wna/pkg/httpclient"
	"github.com/joskode/wna/pkg/index"
	"github.com/joskode/wna/pkg/pathresolver"
	"github.com/joskode/wna/pkg/progress"
	"github.com/joskode/wna/pkg/reconcile"
	"github.com/joskode/wna/pkg/sentencefilter"
	"github.com/joskode/wna/pkg/sources"
	"github.com/joskode/wna/pkg/wslock"
)

// Phase identifies which step of the run an Event was emitted from. The
// string values double as the "status" field of the rendered log line,
// grounded on kerbaras-mangas/pkg/services/downloader.go's
// DownloadProgress.Status convention ("downloading", "processing",
// "complete", "error").
type Phase string

const (
	PhaseResolvingSource Phase = "resolving_source"
	PhaseFetchingMeta    Phase = "fetching_metadata"
	PhaseFetchingManifest Phase = "fetching_manifest"
	PhaseReconciling     Phase = "reconciling"
	PhaseDownloading     Phase = "downloading"
	PhaseSaving          Phase = "saving_progress"
	PhaseBuildingEpub    Phase = "building_epub"
	PhaseCleaningUp      Phase = "cleaning_up"
	PhaseDone            Phase = "done"
	PhaseError           Phase = "error"
)

// Event is one progress update surfaced to the thin CLI.
type Event struct {
	Story      string
	ChapterURL string
	Phase      Phase
	Err        error
}

// Options mirrors the per-run flags spec.md §4.8/§6 expose on the CLI.
type Options struct {
	ForceReprocessing  bool
	ChapterLimitForRun int
	ResumeFromURL      string
	Workers            int
	ChaptersPerVolume  int
	EpubContents       epub.ContentsMode
	KeepTempFiles      bool
	SentenceConfig     sentencefilter.Config
	EbookTitleOverride string
	OutputDirOverride  string
}

// Orchestrator runs archive operations against one workspace. It is
// built once per CLI invocation (spec.md §5: one logical run holds the
// workspace's advisory lock for its duration).
type Orchestrator struct {
	Workspace  string
	Dispatch   *sources.Dispatch
	Index      *index.Index
	HTTPClient *httpclient.Client
	Log        *logrus.Entry
}

// New constructs an Orchestrator. log may be nil, in which case a
// standalone entry is used.
func New(workspace string, dispatch *sources.Dispatch, idx *index.Index, httpClient *httpclient.Client, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{Workspace: workspace, Dispatch: dispatch, Index: idx, HTTPClient: httpClient, Log: log}
}

func (o *Orchestrator) log() *logrus.Entry {
	if o.Log != nil {
		return o.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Run executes spec.md §4.8 steps 1-8 for storyURL, emitting Events on
// the returned channel until the run finishes or ctx is cancelled. The
// channel is always closed.
func (o *Orchestrator) Run(ctx context.Context, storyURL string, opts Options) <-chan Event {
	events := make(chan Event, 32)
	go func() {
		defer close(events)
		o.run(ctx, storyURL, opts, events)
	}()
	return events
}

func (o *Orchestrator) run(ctx context.Context, storyURL string, opts Options, events chan<- Event) {
	lock, err := wslock.Acquire(o.Workspace)
	if err != nil {
		events <- Event{Story: storyURL, Phase: PhaseError, Err: fmt.Errorf("orchestrator: acquire workspace lock: %w", err)}
		return
	}
	defer lock.Release()

	events <- Event{Story: storyURL, Phase: PhaseResolvingSource}
	src, err := o.Dispatch.For(storyURL)
	if err != nil {
		events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
		return
	}

	permanentID, err := src.PermanentID(storyURL)
	if err != nil {
		events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
		return
	}

	store := progress.NewStore(o.log())

	var rec *progress.Record
	if oldSlug, found := o.Index.Lookup(permanentID); found {
		rec, err = store.Load(progress.PathFor(o.Workspace, oldSlug), permanentID, storyURL)
		if err != nil {
			events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
			return
		}
	} else {
		rec = progress.New(permanentID, storyURL)
	}

	events <- Event{Story: storyURL, Phase: PhaseFetchingMeta}
	meta, err := src.Metadata(ctx, storyURL)
	if err != nil {
		events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
		return
	}
	rec.OriginalTitle = meta.Title
	rec.OriginalAuthor = meta.Author
	rec.CoverImageURL = meta.CoverURL
	rec.Synopsis = meta.Synopsis
	rec.EstimatedTotalChaptersSource = meta.EstimatedTotalChaptersSource
	if opts.EbookTitleOverride != "" {
		rec.EffectiveTitle = opts.EbookTitleOverride
	} else {
		rec.EffectiveTitle = rec.OriginalTitle
	}

	resolver := pathresolver.New(o.Workspace, o.Index)
	slug, err := resolver.SetStory(permanentID, rec.EffectiveTitle)
	if err != nil {
		events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
		return
	}
	path := progress.PathFor(o.Workspace, slug)

	events <- Event{Story: storyURL, Phase: PhaseFetchingManifest}
	manifest, err := src.Manifest(ctx, storyURL)
	if err != nil {
		events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
		return
	}
	if len(manifest) == 0 && rec.LastDownloadedChapterURL != "" {
		if next, found, probeErr := src.ProbeNext(ctx, rec.LastDownloadedChapterURL); probeErr == nil && found && next != "" {
			manifest, err = src.Manifest(ctx, storyURL)
			if err != nil {
				events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
				return
			}
		}
	}

	rawDir := resolver.StoryDir("raw_content", slug)
	processedDir := resolver.StoryDir("processed_content", slug)

	events <- Event{Story: storyURL, Phase: PhaseReconciling}
	flags := reconcile.Flags{
		ForceReprocessing:  opts.ForceReprocessing,
		ChapterLimitForRun: opts.ChapterLimitForRun,
		ResumeFromURL:      opts.ResumeFromURL,
	}
	result := reconcile.Reconcile(rec, manifest, flags, fileChecker(opts.KeepTempFiles, rawDir, processedDir), time.Now().UTC())

	events <- Event{Story: storyURL, Phase: PhaseDownloading}
	pool := &download.Pool{
		Source:         src,
		SiteName:       src.SiteName(),
		SentenceConfig: opts.SentenceConfig,
		RawDir:         rawDir,
		ProcessedDir:   processedDir,
		Workers:        opts.Workers,
		Log:            o.log(),
	}
	for outcome := range pool.Run(ctx, result.WorkQueue, opts.ChapterLimitForRun, result.LimitStartIndex) {
		reconcile.ApplyOutcome(result.Record, outcome)
		ev := Event{Story: storyURL, ChapterURL: outcome.ChapterURL, Phase: PhaseDownloading}
		if !outcome.Success {
			ev.Err = fmt.Errorf("%s: %s", outcome.ErrorType, outcome.ErrorMessage)
		}
		events <- ev
	}

	events <- Event{Story: storyURL, Phase: PhaseSaving}
	if err := store.Save(path, result.Record); err != nil {
		events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
		return
	}

	outputDir := resolver.StoryDir("ebooks", slug)
	if opts.OutputDirOverride != "" {
		outputDir = opts.OutputDirOverride
	}

	events <- Event{Story: storyURL, Phase: PhaseBuildingEpub}
	builder := epub.New(o.HTTPClient, o.log())
	files, err := builder.Build(result.Record, epub.Options{
		ChaptersPerVolume: opts.ChaptersPerVolume,
		Contents:          opts.EpubContents,
		OutputDir:         outputDir,
		ProcessedDir:      processedDir,
	})
	if err != nil {
		events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
		return
	}
	result.Record.LastEpubProcessing = progress.EpubProcessing{
		Timestamp:          time.Now().UTC(),
		GeneratedEpubFiles: files,
	}

	events <- Event{Story: storyURL, Phase: PhaseSaving}
	if err := store.Save(path, result.Record); err != nil {
		events <- Event{Story: storyURL, Phase: PhaseError, Err: err}
		return
	}

	if !opts.KeepTempFiles {
		events <- Event{Story: storyURL, Phase: PhaseCleaningUp}
		_ = os.RemoveAll(rawDir)
		_ = os.RemoveAll(processedDir)
	}

	events <- Event{Story: storyURL, Phase: PhaseDone}
}

// fileChecker implements spec.md §9 Decision D2: when keepTempFiles is
// false, presence-in-progress (the status field alone) is trusted as
// evidence of a prior successful download, since the raw/processed
// directories are deleted at the end of every run anyway. Only when
// keepTempFiles is true — meaning the files are expected to survive
// between runs — does Reconcile additionally verify they are still on
// disk before skipping a chapter.
func fileChecker(keepTempFiles bool, rawDir, processedDir string) reconcile.FileChecker {
	if !keepTempFiles {
		return reconcile.AlwaysPresent
	}
	return func(c progress.ChapterRecord) bool {
		if c.LocalRawFilename == "" || c.LocalProcessedFilename == "" {
			return false
		}
		if _, err := os.Stat(filepath.Join(rawDir, c.LocalRawFilename)); err != nil {
			return false
		}
		if _, err := os.Stat(filepath.Join(processedDir, c.LocalProcessedFilename)); err != nil {
			return false
		}
		return true
	}
}
