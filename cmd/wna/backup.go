package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joskode/wna/pkg/cloudstore"
)

var cloudBackupCmd = &cobra.Command{
	Use:   "cloud-backup",
	Short: "Upload generated EPUB files to cloud storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		storyFilter, _ := cmd.Flags().GetString("story")
		forceFullUpload, _ := cmd.Flags().GetBool("force-full-upload")

		rt, err := loadRuntime()
		if err != nil {
			return err
		}

		store := cloudstore.NewLocalMirror(filepath.Join(rt.workspace, "cloud_backup"))
		reports, err := cloudstore.Backup(rt.workspace, store, storyFilter, forceFullUpload)
		if err != nil {
			return fmt.Errorf("cloud-backup failed: %w", err)
		}

		for _, r := range reports {
			if len(r.Uploaded) == 0 {
				fmt.Printf("%s: up to date\n", r.PermanentID)
				continue
			}
			fmt.Printf("%s: uploaded %d file(s): %v\n", r.PermanentID, len(r.Uploaded), r.Uploaded)
		}
		return nil
	},
}

func init() {
	cloudBackupCmd.Flags().String("story", "", "only back up this permanent_id")
	cloudBackupCmd.Flags().String("service", "local", "backend to back up to (only 'local' is implemented)")
	cloudBackupCmd.Flags().Bool("force-full-upload", false, "re-upload every file regardless of remote freshness")
}
