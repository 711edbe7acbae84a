package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joskode/wna/pkg/epub"
	"github.com/joskode/wna/pkg/orchestrator"
	"github.com/joskode/wna/pkg/sentencefilter"
	"github.com/joskode/wna/pkg/styleui"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <story_url>",
	Short: "Archive a webnovel into EPUB volumes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyURL := args[0]

		outputDir, _ := cmd.Flags().GetString("output-dir")
		titleOverride, _ := cmd.Flags().GetString("ebook-title-override")
		keepTempFiles, _ := cmd.Flags().GetBool("keep-temp-files")
		forceReprocessing, _ := cmd.Flags().GetBool("force-reprocessing")
		sentenceRemovalFile, _ := cmd.Flags().GetString("sentence-removal-file")
		noSentenceRemoval, _ := cmd.Flags().GetBool("no-sentence-removal")
		chaptersPerVolume, _ := cmd.Flags().GetInt("chapters-per-volume")
		epubContents, _ := cmd.Flags().GetString("epub-contents")
		chapterLimit, _ := cmd.Flags().GetInt("chapter-limit")
		workers, _ := cmd.Flags().GetInt("workers")

		rt, err := loadRuntime()
		if err != nil {
			return err
		}

		contentsMode := epub.ContentsAll
		if epubContents == "active-only" {
			contentsMode = epub.ContentsActiveOnly
		}

		var sentenceCfg sentencefilter.Config
		if !noSentenceRemoval {
			file := sentenceRemovalFile
			if file == "" {
				file = rt.cfg.DefaultSentenceRemovalFile
			}
			if file != "" {
				sentenceCfg = sentencefilter.LoadConfig(file, rt.log)
			}
		}

		orch := orchestrator.New(rt.workspace, rt.dispatch, rt.idx, rt.http, rt.log)
		events := orch.Run(cmd.Context(), storyURL, orchestrator.Options{
			ForceReprocessing:  forceReprocessing,
			ChapterLimitForRun: chapterLimit,
			Workers:            workers,
			ChaptersPerVolume:  chaptersPerVolume,
			EpubContents:       contentsMode,
			KeepTempFiles:      keepTempFiles,
			SentenceConfig:     sentenceCfg,
			EbookTitleOverride: titleOverride,
			OutputDirOverride:  outputDir,
		})

		var failed bool
		for ev := range events {
			fmt.Println(styleui.RenderEvent(ev))
			if ev.Phase == orchestrator.PhaseError {
				failed = true
			}
		}
		if failed {
			return fmt.Errorf("archive run for %s finished with errors", storyURL)
		}
		return nil
	},
}

func init() {
	archiveCmd.Flags().String("output-dir", "", "override the EPUB output directory for this story")
	archiveCmd.Flags().String("ebook-title-override", "", "override the effective title used for the story's slug and EPUB")
	archiveCmd.Flags().Bool("keep-temp-files", false, "keep raw_content/processed_content after a successful run")
	archiveCmd.Flags().Bool("force-reprocessing", false, "re-download and re-clean every chapter in the manifest")
	archiveCmd.Flags().String("sentence-removal-file", "", "path to a sentence-removal JSON config")
	archiveCmd.Flags().Bool("no-sentence-removal", false, "disable sentence filtering for this run")
	archiveCmd.Flags().Int("chapters-per-volume", 0, "split the EPUB into volumes of this many chapters (0 = single volume)")
	archiveCmd.Flags().String("epub-contents", "all", "which chapters to include in the EPUB: all or active-only")
	archiveCmd.Flags().Int("chapter-limit", 0, "cap the number of chapters downloaded this run (0 = unlimited)")
	archiveCmd.Flags().Int("workers", 0, "download worker pool size (0 = package default)")
}
