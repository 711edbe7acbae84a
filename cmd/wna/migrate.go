package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joskode/wna/pkg/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run a one-shot migration against every progress record in the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		storyFilter, _ := cmd.Flags().GetString("story")
		migrationType, _ := cmd.Flags().GetString("type")

		if migrationType != "royalroad-legacy-id" {
			return fmt.Errorf("migrate: unsupported --type %q (only royalroad-legacy-id is implemented)", migrationType)
		}

		rt, err := loadRuntime()
		if err != nil {
			return err
		}

		reports, err := migrate.RoyalRoadLegacyID(rt.workspace, rt.idx, storyFilter, rt.dispatch)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		if len(reports) == 0 {
			fmt.Println("no legacy records found")
			return nil
		}
		for _, r := range reports {
			fmt.Printf("%s: %s -> %s\n", r.Slug, r.OldID, r.NewID)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("story", "", "only migrate this permanent_id")
	migrateCmd.Flags().String("type", "royalroad-legacy-id", "migration to run")
}
