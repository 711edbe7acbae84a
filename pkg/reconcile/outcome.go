package reconcile

import (
	"time"

	"github.com/joskode/wna/pkg/progress"
)

// Outcome is what the Download Pool (C8) hands back per task, spec.md
// §4.7 step 6-7. Outcomes are immutable values returned over a
// completion channel; only ApplyOutcome mutates shared state, and it
// does so in the Orchestrator's single-writer section.
type Outcome struct {
	ChapterURL             string
	Success                bool
	LocalRawFilename       string
	LocalProcessedFilename string
	DownloadTimestamp      time.Time
	ErrorType              string
	ErrorMessage           string
}

// ApplyOutcome merges one task outcome into rec, matching spec.md
// §4.7 step 6: on success, status=active with fresh timestamp and
// filenames and a cleared error; on failure, prior filenames are
// preserved (a chapter that fails to reprocess keeps the last good
// copy on disk) and error_info is recorded.
func ApplyOutcome(rec *progress.Record, outcome Outcome) {
	for i := range rec.DownloadedChapters {
		c := &rec.DownloadedChapters[i]
		if c.ChapterURL != outcome.ChapterURL {
			continue
		}

		if outcome.Success {
			c.Status = progress.StatusActive
			c.DownloadTimestamp = outcome.DownloadTimestamp
			c.LocalRawFilename = outcome.LocalRawFilename
			c.LocalProcessedFilename = outcome.LocalProcessedFilename
			c.ErrorInfo = nil
			return
		}

		c.Status = progress.StatusFailed
		c.ErrorInfo = &progress.ErrorInfo{
			Type:      outcome.ErrorType,
			Message:   outcome.ErrorMessage,
			Timestamp: outcome.DownloadTimestamp,
		}
		return
	}
}
