package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joskode/wna/pkg/catalog"
	"github.com/joskode/wna/pkg/report"
)

var generateReportCmd = &cobra.Command{
	Use:   "generate-report",
	Short: "Rebuild the local catalog and render an HTML summary report",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath, _ := cmd.Flags().GetString("output")

		rt, err := loadRuntime()
		if err != nil {
			return err
		}

		cat, err := catalog.Open(rt.workspace)
		if err != nil {
			return fmt.Errorf("generate-report: open catalog: %w", err)
		}
		defer cat.Close()

		if err := catalog.Rebuild(rt.workspace, cat); err != nil {
			return fmt.Errorf("generate-report: rebuild catalog: %w", err)
		}

		if outputPath == "" {
			outputPath = filepath.Join(rt.workspace, "report.html")
		}
		if err := report.Render(cat, outputPath); err != nil {
			return fmt.Errorf("generate-report: render: %w", err)
		}

		fmt.Printf("report written to %s\n", outputPath)
		return nil
	},
}

func init() {
	generateReportCmd.Flags().String("output", "", "path to write the report HTML to (default <workspace>/report.html)")
}
