package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joskode/wna/pkg/restore"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Reconstruct processed_content from a previously built EPUB",
	Long: "restore recovers a story's processed_content/<slug> files when they\n" +
		"were deleted or lost, by reading chapter bodies back out of the most\n" +
		"recently built EPUB in workspace/ebooks/. It refuses a partial\n" +
		"restore when the EPUB's chapter count disagrees with progress.json.",
	RunE: func(cmd *cobra.Command, args []string) error {
		storyFilter, _ := cmd.Flags().GetString("story")

		rt, err := loadRuntime()
		if err != nil {
			return err
		}

		reports, err := restore.Run(rt.workspace, storyFilter, rt.log)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}

		if len(reports) == 0 {
			fmt.Println("no stories found")
			return nil
		}
		for _, r := range reports {
			if r.SkippedReason != "" {
				fmt.Printf("%s: skipped (%s)\n", r.Slug, r.SkippedReason)
				continue
			}
			fmt.Printf("%s: restored %d file(s)\n", r.Slug, r.RestoredFiles)
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().String("story", "", "only restore this permanent_id")
}
