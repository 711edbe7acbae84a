// Package download implements the Download Worker Pool (spec.md §4.7):
// bounded-concurrency, per-host-rate-limited, retrying fetch-clean-write
// pipeline for a reconciled work queue. The worker/progress-channel
// shape is grounded on
// kerbaras-mangas/pkg/services/downloader.go's DownloadManga (a
// semaphore-bounded goroutine pool feeding a buffered progress
// channel); retry/backoff is grounded on
// other_examples/*jackzampolin-shelf*'s use of
// github.com/avast/retry-go/v4 for an HTTP health-check retry loop.
package download

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"

	"github.com/joskode/wna/pkg/atomicfile"
	"github.com/joskode/wna/pkg/htmlclean"
	"github.com/joskode/wna/pkg/progress"
	"github.com/joskode/wna/pkg/reconcile"
	"github.com/joskode/wna/pkg/sentencefilter"
	"github.com/joskode/wna/pkg/sources"
	"github.com/joskode/wna/pkg/wnaerr"
)

// DefaultWorkers is the default worker pool size, spec.md §4.7.
const DefaultWorkers = 4

const (
	maxAttempts      = 5
	baseDelay        = 1 * time.Second
	backoffMaxJitter = 200 * time.Millisecond // ~20% of baseDelay at attempt 1
)

// Pool executes a reconciled work queue against one Source, writing raw
// and processed chapter files atomically.
type Pool struct {
	Source         sources.Source
	SiteName       string
	SentenceConfig sentencefilter.Config
	RawDir         string
	ProcessedDir   string
	Workers        int
	Log            *logrus.Entry
}

// Run fetches, cleans, and persists every record in queue with bounded
// concurrency, stopping new task starts once chapterLimit successful
// downloads have completed this run (0 = unlimited) or ctx is
// cancelled. It returns one reconcile.Outcome per record it attempted;
// records it never attempted (because the limit was already reached or
// the run was cancelled first) are simply absent from the result.
//
// limitStartIndex exempts queue[:limitStartIndex] from chapterLimit
// entirely — those entries are always attempted regardless of how many
// downloads have already completed this run. This mirrors the
// resume_from_url orchestrator.py behavior reconcile.Reconcile surfaces
// as Result.LimitStartIndex: chapter_limit_for_run only starts
// counting once the resume point is reached, not before it.
func (p *Pool) Run(ctx context.Context, queue []progress.ChapterRecord, chapterLimit, limitStartIndex int) <-chan reconcile.Outcome {
	workers := p.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	out := make(chan reconcile.Outcome, len(queue))
	if len(queue) == 0 {
		close(out)
		return out
	}

	sem := make(chan struct{}, workers)
	var completed atomic.Int64
	var wg sync.WaitGroup

	for idx, chapter := range queue {
		if ctx.Err() != nil {
			break
		}
		limited := chapterLimit > 0 && idx >= limitStartIndex
		if limited && completed.Load() >= int64(chapterLimit) {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(chapter progress.ChapterRecord, limited bool) {
			defer wg.Done()
			defer func() { <-sem }()

			if limited && completed.Load() >= int64(chapterLimit) {
				return
			}

			outcome := p.runTask(ctx, chapter)
			if outcome.Success {
				completed.Add(1)
			}
			out <- outcome
		}(chapter, limited)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (p *Pool) log() *logrus.Entry {
	if p.Log != nil {
		return p.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (p *Pool) runTask(ctx context.Context, chapter progress.ChapterRecord) reconcile.Outcome {
	log := p.log().WithField("chapter_url", chapter.ChapterURL)

	raw, err := p.fetchWithRetry(ctx, chapter.ChapterURL)
	if err != nil {
		return failureOutcome(chapter, err)
	}

	rawName := fmt.Sprintf("chapter_%05d_%s.html", chapter.DownloadOrder, safeFileToken(chapter.SourceChapterID))
	rawPath := filepath.Join(p.RawDir, rawName)
	if err := atomicfile.Write(rawPath, []byte(raw), 0o644); err != nil {
		log.WithError(err).Error("failed to write raw chapter file")
		return failureOutcome(chapter, &wnaerr.FilesystemError{Op: "write raw chapter", Path: rawPath, Err: err})
	}

	cleaned := htmlclean.Clean(raw, p.SiteName)
	cleaned = sentencefilter.Filter(cleaned, p.SentenceConfig)

	if cleaned == "" {
		log.Warn("chapter content empty after cleaning, marking failed")
		return reconcile.Outcome{
			ChapterURL:        chapter.ChapterURL,
			Success:           false,
			ErrorType:         "empty_after_clean",
			ErrorMessage:      "chapter content was empty after HTML cleaning and sentence filtering",
			DownloadTimestamp: timeNow(),
		}
	}

	processedName := fmt.Sprintf("chapter_%05d_%s_clean.html", chapter.DownloadOrder, safeFileToken(chapter.SourceChapterID))
	processedPath := filepath.Join(p.ProcessedDir, processedName)
	if err := atomicfile.Write(processedPath, []byte(cleaned), 0o644); err != nil {
		log.WithError(err).Error("failed to write processed chapter file")
		return failureOutcome(chapter, &wnaerr.FilesystemError{Op: "write processed chapter", Path: processedPath, Err: err})
	}

	return reconcile.Outcome{
		ChapterURL:             chapter.ChapterURL,
		Success:                true,
		LocalRawFilename:       rawName,
		LocalProcessedFilename: processedName,
		DownloadTimestamp:      timeNow(),
	}
}

// fetchWithRetry wraps Source.ChapterBody with spec.md §4.7's retry
// policy (base 1s, factor 2, max 5 attempts, ~20% jitter), short
// circuiting immediately on non-retryable errors (ChapterGone, ParseError).
func (p *Pool) fetchWithRetry(ctx context.Context, chapterURL string) (string, error) {
	var body string
	err := retry.Do(
		func() error {
			b, err := p.Source.ChapterBody(ctx, chapterURL)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(baseDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(backoffMaxJitter),
		retry.RetryIf(func(err error) bool { return wnaerr.Retryable(err) }),
		retry.LastErrorOnly(true),
	)
	return body, err
}

func failureOutcome(chapter progress.ChapterRecord, err error) reconcile.Outcome {
	return reconcile.Outcome{
		ChapterURL:        chapter.ChapterURL,
		Success:           false,
		ErrorType:         wnaerr.Kind(err),
		ErrorMessage:      err.Error(),
		DownloadTimestamp: timeNow(),
	}
}

func safeFileToken(s string) string {
	if s == "" {
		return "chapter"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// timeNow is a seam so tests can assert exact timestamps without
// depending on wall-clock time; production always calls time.Now.
var timeNow = func() time.Time { return time.Now().UTC() }
