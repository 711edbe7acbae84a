// Package migrate implements the one-shot `migrate --type
// royalroad-legacy-id` command: legacy progress records store RoyalRoad
// stories under their bare numeric fiction ID as permanent_id; this
// rewrites them to the current "royalroad-<id>" scheme and updates the
// Story Index to match, without touching any on-disk folder layout
// (folders are keyed by slug, not permanent_id, so no rename is needed).
package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/joskode/wna/pkg/index"
	"github.com/joskode/wna/pkg/progress"
	"github.com/joskode/wna/pkg/sources"
)

var legacyRoyalRoadID = regexp.MustCompile(`^\d+$`)

// Report is one migrated story's before/after identifiers.
type Report struct {
	Slug    string
	OldID   string
	NewID   string
	StoryURL string
}

// RoyalRoadLegacyID scans every archival_status/*/progress.json under
// workspace, rewrites any record whose permanent_id is a bare numeric
// RoyalRoad fiction ID to "royalroad-<id>", and updates idx to match.
// If storyFilter is non-empty, only that permanent_id is considered.
// When dispatch is non-nil and a record carries a story_url, the
// migrated ID is cross-checked against what the registered Source
// itself derives; a mismatch aborts the run rather than writing a
// permanent_id the Fetcher would disagree with on the next archive run.
func RoyalRoadLegacyID(workspace string, idx *index.Index, storyFilter string, dispatch *sources.Dispatch) ([]Report, error) {
	pattern := filepath.Join(workspace, "archival_status", "*", "progress.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("migrate: glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	store := progress.NewStore(nil)
	var reports []Report

	for _, path := range matches {
		rec, err := readRecord(path)
		if err != nil {
			return reports, fmt.Errorf("migrate: read %s: %w", path, err)
		}

		if storyFilter != "" && rec.PermanentID != storyFilter {
			continue
		}
		if !legacyRoyalRoadID.MatchString(rec.PermanentID) {
			continue
		}

		newID := "royalroad-" + rec.PermanentID
		if dispatch != nil && rec.StoryURL != "" {
			if derived, err := derivedPermanentID(dispatch, rec.StoryURL); err == nil && derived != newID {
				return reports, fmt.Errorf("migrate: %s: Source derives permanent_id %q, heuristic derived %q", path, derived, newID)
			}
		}

		slug, found := idx.Lookup(rec.PermanentID)
		if !found {
			slug = filepath.Base(filepath.Dir(path))
		}

		oldID := rec.PermanentID
		rec.PermanentID = newID
		if err := store.Save(path, rec); err != nil {
			return reports, fmt.Errorf("migrate: save %s: %w", path, err)
		}

		if err := idx.Set(newID, slug); err != nil {
			return reports, fmt.Errorf("migrate: update index for %s: %w", newID, err)
		}
		if err := idx.Remove(oldID); err != nil {
			return reports, fmt.Errorf("migrate: remove legacy index entry %s: %w", oldID, err)
		}

		reports = append(reports, Report{Slug: slug, OldID: oldID, NewID: newID, StoryURL: rec.StoryURL})
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

// derivedPermanentID is a defensive cross-check: if the record's
// story_url is present and a Source is registered for its host, the
// Source's own PermanentID should agree with the migrated value. Used
// by callers that want to fail loudly on a mismatch rather than trust
// the bare-numeric heuristic alone.
func derivedPermanentID(dispatch *sources.Dispatch, storyURL string) (string, error) {
	src, err := dispatch.For(storyURL)
	if err != nil {
		return "", err
	}
	return src.PermanentID(storyURL)
}
